package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quickchat/internal/client"
	"quickchat/internal/config"
	"quickchat/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := logCfg.Build()
	defer logger.Sync()

	session := client.NewSession(logger, client.NewAPI(cfg.ServerURL, nil), client.NewFileTokenStore(cfg.TokenFile))
	defer session.Close()
	session.OnMessage(func(m domain.Message) {
		fmt.Printf("\n[nuevo mensaje de %s] %s\n", m.SenderID, describeMessage(m))
	})

	if user, err := session.CheckAuth(ctx); err == nil {
		fmt.Printf("Sesion restaurada: %s <%s>\n", user.FullName, user.Email)
	}

	for ctx.Err() == nil {
		if _, ok := session.AuthUser(); ok {
			if quit := loggedInMenu(ctx, reader, session); quit {
				return
			}
			continue
		}
		if quit := loggedOutMenu(ctx, reader, session); quit {
			return
		}
	}
}

func loggedOutMenu(ctx context.Context, reader *bufio.Reader, session *client.Session) bool {
	fmt.Println("\n===== QuickChat =====")
	fmt.Println("[1] Iniciar sesion")
	fmt.Println("[2] Crear cuenta")
	fmt.Println("[3] Salir")
	switch prompt(reader, "Selecciona una opcion: ") {
	case "1":
		email := prompt(reader, "Email: ")
		password := prompt(reader, "Password: ")
		user, err := session.Login(ctx, email, password)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		fmt.Printf("Hola %s!\n", user.FullName)
	case "2":
		signupFlow(ctx, reader, session)
	case "3":
		return true
	default:
		fmt.Println("Opcion invalida.")
	}
	return false
}

func signupFlow(ctx context.Context, reader *bufio.Reader, session *client.Session) {
	fullName := prompt(reader, "Nombre completo: ")
	email := prompt(reader, "Email: ")
	password := prompt(reader, "Password: ")
	if err := session.BeginSignup(fullName, email, password); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer session.AbandonSignup()

	if err := session.SendOTP(ctx); err != nil {
		fmt.Printf("Error enviando OTP: %v\n", err)
		return
	}
	fmt.Println("Te enviamos un codigo de 6 digitos por email.")

	for {
		code := prompt(reader, "Codigo OTP (vacio para reenviar, 'cancelar' para salir): ")
		if strings.EqualFold(code, "cancelar") {
			return
		}
		if code == "" {
			if err := session.SendOTP(ctx); err != nil {
				fmt.Printf("Error enviando OTP: %v\n", err)
			} else {
				fmt.Println("Codigo reenviado.")
			}
			continue
		}
		if err := session.VerifyOTP(ctx, code); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		break
	}

	for {
		bio := prompt(reader, "Bio: ")
		user, err := session.CompleteSignup(ctx, bio)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			if bio != "" {
				return
			}
			continue
		}
		fmt.Printf("Cuenta creada. Bienvenido %s!\n", user.FullName)
		return
	}
}

func loggedInMenu(ctx context.Context, reader *bufio.Reader, session *client.Session) bool {
	user, _ := session.AuthUser()
	fmt.Printf("\n--- %s (%d online) ---\n", user.FullName, len(session.OnlineUsers()))
	fmt.Println("[1] Contactos")
	fmt.Println("[2] Chatear")
	fmt.Println("[3] Editar perfil")
	fmt.Println("[4] Cerrar sesion")
	fmt.Println("[5] Salir")
	switch prompt(reader, "Selecciona una opcion: ") {
	case "1":
		if _, err := listContacts(ctx, session); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	case "2":
		if err := chatFlow(ctx, reader, session); err != nil {
			fmt.Printf("Error en chat: %v\n", err)
		}
	case "3":
		fullName := prompt(reader, fmt.Sprintf("Nombre (%s): ", user.FullName))
		if fullName == "" {
			fullName = user.FullName
		}
		bio := prompt(reader, fmt.Sprintf("Bio (%s): ", user.Bio))
		if bio == "" {
			bio = user.Bio
		}
		pic := prompt(reader, "Ruta de imagen de perfil (opcional): ")
		update := client.ProfileUpdate{FullName: fullName, Bio: bio}
		if pic != "" {
			dataURI, err := client.ImageDataURI(pic)
			if err != nil {
				fmt.Printf("Error leyendo imagen: %v\n", err)
				return false
			}
			update.ProfilePic = dataURI
		}
		if _, err := session.UpdateProfile(ctx, update); err != nil {
			fmt.Printf("Error: %v\n", err)
		} else {
			fmt.Println("Perfil actualizado.")
		}
	case "4":
		session.Logout()
		fmt.Println("Sesion cerrada.")
	case "5":
		return true
	default:
		fmt.Println("Opcion invalida.")
	}
	return false
}

func listContacts(ctx context.Context, session *client.Session) ([]domain.User, error) {
	contacts, err := session.API().Contacts(ctx, session.Token())
	if err != nil {
		return nil, err
	}
	for i, u := range contacts.Users {
		status := "offline"
		if session.IsOnline(u.ID) {
			status = "online"
		}
		unseen := ""
		if n := contacts.UnseenMessages[u.ID]; n > 0 {
			unseen = fmt.Sprintf(" [%d sin leer]", n)
		}
		fmt.Printf("[%d] %s <%s> (%s)%s\n", i+1, u.FullName, u.Email, status, unseen)
	}
	if len(contacts.Users) == 0 {
		fmt.Println("No hay otros usuarios.")
	}
	return contacts.Users, nil
}

func chatFlow(ctx context.Context, reader *bufio.Reader, session *client.Session) error {
	users, err := listContacts(ctx, session)
	if err != nil || len(users) == 0 {
		return err
	}
	idx, err := strconv.Atoi(prompt(reader, "Selecciona un contacto: "))
	if err != nil || idx < 1 || idx > len(users) {
		fmt.Println("Seleccion invalida.")
		return nil
	}
	peer := users[idx-1]

	history, err := session.API().Conversation(ctx, session.Token(), peer.ID)
	if err != nil {
		return fmt.Errorf("cargar conversacion: %w", err)
	}
	for _, m := range history {
		author := "Tu"
		if m.SenderID == peer.ID {
			author = peer.FullName
		}
		fmt.Printf("%s > %s\n", author, describeMessage(m))
	}

	fmt.Printf("---- Chat con %s (escribe 'salir' para terminar, '/img <ruta>' para enviar imagen) ----\n", peer.FullName)
	for {
		text := prompt(reader, "Tu > ")
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			return nil
		}
		var image string
		if path, ok := strings.CutPrefix(text, "/img "); ok {
			image, err = client.ImageDataURI(strings.TrimSpace(path))
			if err != nil {
				fmt.Printf("Error leyendo imagen: %v\n", err)
				continue
			}
			text = ""
		}
		if _, err := session.API().SendMessage(ctx, session.Token(), peer.ID, text, image); err != nil {
			fmt.Printf("Error enviando mensaje: %v\n", err)
		}
	}
}

func describeMessage(m domain.Message) string {
	if m.Image != "" && m.Text != "" {
		return m.Text + " [imagen: " + m.Image + "]"
	}
	if m.Image != "" {
		return "[imagen: " + m.Image + "]"
	}
	return m.Text
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
