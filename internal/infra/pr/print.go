// Package pr — унифицированный вывод для интерактивной CLI-среды.
// Инициализирует readline с отменяемым stdin, переназначает stdout/stderr на
// его буферы и даёт удобные функции печати. Мьютекс защищает только смену
// целевых writer'ов; потокобезопасность записей — на стороне writer'а.
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

var (
	// rl — активный инстанс readline; nil до Init().
	rl *readline.Instance
	// out/errOut — текущие потоки вывода. До Init() — os.Stdout/os.Stderr.
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	mu     sync.Mutex

	// cancelableIn — stdin, который можно закрыть для прерывания чтения (io.EOF у readline).
	cancelableIn interface{ Close() error }
)

// Init настраивает readline и перенаправляет вывод на его stdout/stderr.
// Отменяемый stdin позволяет прервать ожидание ввода при shutdown.
func Init() error {
	cs := readline.NewCancelableStdin(os.Stdin)
	newRl, err := readline.NewEx(&readline.Config{Stdin: cs})
	if err != nil {
		_ = cs.Close()
		return err
	}
	rl = newRl

	mu.Lock()
	cancelableIn = cs
	out = rl.Stdout()
	errOut = rl.Stderr()
	mu.Unlock()

	return nil
}

// InterruptReadline закрывает cancelable stdin: Readline() получает io.EOF и возвращается.
func InterruptReadline() {
	if cancelableIn != nil {
		_ = cancelableIn.Close()
	}
}

// SetPrompt задаёт строку приглашения; no-op до Init().
func SetPrompt(prompt string) {
	if rl != nil {
		rl.SetPrompt(prompt)
	}
}

// ReadLine выводит приглашение и читает одну строку из readline.
func ReadLine(prompt string) (string, error) {
	if rl == nil {
		return "", fmt.Errorf("pr: readline is not initialized")
	}
	rl.SetPrompt(prompt)
	return rl.Readline()
}

// Rl возвращает текущий инстанс readline (nil до Init()).
func Rl() *readline.Instance {
	return rl
}

// Stdout возвращает текущий writer стандартного вывода.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr возвращает текущий writer ошибок.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// Print печатает значения в Stdout без перевода строки.
func Print(a ...any) {
	fmt.Fprint(Stdout(), a...)
}

// Println печатает значения в Stdout с переводом строки. Работает и до Init().
func Println(a ...any) {
	fmt.Fprintln(Stdout(), a...)
}

// Printf форматирует и печатает в Stdout.
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout(), format, a...)
}

// ErrPrintln печатает значения в Stderr с переводом строки.
func ErrPrintln(a ...any) {
	fmt.Fprintln(Stderr(), a...)
}

// ErrPrintf форматирует и печатает в Stderr.
func ErrPrintf(format string, a ...any) {
	fmt.Fprintf(Stderr(), format, a...)
}

// PP pretty-печатает значение в Stdout. Для отладки; аллоцирует.
func PP(v any) {
	fmt.Fprintf(Stdout(), "%# v\n", pretty.Formatter(v))
}
