// Пакет auth — терминальный аутентификатор для gotd (auth.UserAuthenticator):
// чтение кода подтверждения и 2FA-пароля из консоли, согласие с ToS и
// первичная регистрация. Связывает CLI и gotd, не трогая сетевую логику.
package auth

import (
	"context"
	"strings"
	"syscall"

	"telegram-chanreader/internal/infra/pr"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/term"
)

// readLine выводит приглашение и возвращает введённую строку без крайних пробелов.
func readLine(prompt string) (string, error) {
	line, err := pr.ReadLine(prompt)
	return strings.TrimSpace(line), err
}

// TerminalAuthenticator собирает интерактивный ввод пользователя при логине.
// Номер телефона известен заранее из конфигурации и не валидируется.
type TerminalAuthenticator struct {
	PhoneNumber string
}

// Phone возвращает номер телефона из конфигурации; ожидается формат E.164.
func (t TerminalAuthenticator) Phone(_ context.Context) (string, error) {
	return t.PhoneNumber, nil
}

// Code запрашивает у пользователя код подтверждения из Telegram.
func (t TerminalAuthenticator) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return readLine("Enter the code from Telegram: ")
}

// Password считывает пароль 2FA без эха.
func (t TerminalAuthenticator) Password(_ context.Context) (string, error) {
	pr.Print("Enter 2FA password: ")
	passwordBytes, err := term.ReadPassword(syscall.Stdin)
	pr.Println()
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

// AcceptTermsOfService показывает текст условий и ждёт явного согласия "y".
func (t TerminalAuthenticator) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	pr.Printf("Telegram Terms of Service: %s\n", tos.Text)
	resp, err := readLine("Do you accept? (y/n): ")
	if err != nil {
		return err
	}
	if resp != "y" && resp != "Y" {
		return errors.New("user did not accept terms of service")
	}
	return nil
}

// SignUp вызывается для незарегистрированного номера: имя и опциональная фамилия.
func (t TerminalAuthenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	firstName, err := readLine("Enter your first name: ")
	if err != nil {
		return auth.UserInfo{}, err
	}
	lastName, _ := readLine("Enter your last name (optional): ")
	return auth.UserInfo{
		FirstName: firstName,
		LastName:  lastName,
	}, nil
}
