package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/infra/storage"
)

// LastIDStore — карта «канал → последний пересланный message id» поверх
// плоского JSON-файла. Нужна, чтобы после рестарта не пересылать старые
// сообщения. Работает из одной горутины поллера, блокировки не требуются.
type LastIDStore struct {
	path string
	ids  map[string]int
}

// OpenLastIDStore читает файл last-id. Отсутствующий или пустой файл даёт
// пустую карту; битый JSON лечится сбросом в пустую карту с предупреждением —
// худший исход здесь повторная доставка, а не потеря данных.
func OpenLastIDStore(path string) (*LastIDStore, error) {
	clean := filepath.Clean(path)
	s := &LastIDStore{path: clean, ids: make(map[string]int)}

	data, err := os.ReadFile(clean)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last-id file: %w", err)
	}

	if errJSON := json.Unmarshal(data, &s.ids); errJSON != nil {
		logger.Warnf("LastIDStore: failed to decode %s: %v; resetting", clean, errJSON)
		s.ids = make(map[string]int)
	}
	return s, nil
}

// Get возвращает последний известный message id канала; 0, если канал не встречался.
func (s *LastIDStore) Get(chatID int64) int {
	return s.ids[strconv.FormatInt(chatID, 10)]
}

// Set запоминает message id канала в памяти. На диск пишет Save.
func (s *LastIDStore) Set(chatID int64, messageID int) {
	s.ids[strconv.FormatInt(chatID, 10)] = messageID
}

// Save атомарно сбрасывает карту на диск. Вызывается в конце каждого цикла
// опроса, а не на каждое сообщение, чтобы не молотить диск.
func (s *LastIDStore) Save() error {
	data, err := json.MarshalIndent(s.ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode last-id map: %w", err)
	}
	if err = storage.AtomicWriteFile(s.path, data); err != nil {
		return fmt.Errorf("persist last-id map: %w", err)
	}
	return nil
}
