// Пакет session хранит MTProto-сессию gotd в обычном файле.
// Запись атомарная: обрыв процесса не оставляет частично записанной сессии,
// из-за которой пришлось бы проходить авторизацию заново.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"

	"telegram-chanreader/internal/infra/storage"

	"github.com/go-faster/errors"
	tdsession "github.com/gotd/td/session"
)

// FileStorage реализует tdsession.Storage поверх файла на диске.
// Load/Store защищены мьютексом; Path — путь до файла сессии.
type FileStorage struct {
	Path string
	mux  sync.Mutex
}

var _ tdsession.Storage = (*FileStorage)(nil)

// LoadSession читает файл сессии. Отсутствие файла — tdsession.ErrNotFound,
// gotd в этом случае запустит интерактивную авторизацию.
func (f *FileStorage) LoadSession(_ context.Context) ([]byte, error) {
	if f == nil {
		return nil, errors.New("nil session storage is invalid")
	}
	f.mux.Lock()
	defer f.mux.Unlock()

	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, tdsession.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read session")
	}
	return data, nil
}

// StoreSession атомарно сохраняет данные сессии на диск.
func (f *FileStorage) StoreSession(_ context.Context, data []byte) error {
	if f == nil {
		return errors.New("nil session storage is invalid")
	}
	f.mux.Lock()
	defer f.mux.Unlock()

	if err := storage.AtomicWriteFile(f.Path, data); err != nil {
		return fmt.Errorf("atomic write session: %w", err)
	}
	return nil
}

// Remove удаляет файл сессии; используется режимом auth для принудительной
// повторной авторизации. Отсутствие файла не ошибка.
func (f *FileStorage) Remove() error {
	f.mux.Lock()
	defer f.mux.Unlock()

	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
