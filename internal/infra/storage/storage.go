// Package storage — утилиты безопасной работы с локальными файлами данных.
// Здесь живут EnsureDir и AtomicWriteFile: ими пишутся файл сессии MTProto,
// карта last-id и выходные файлы экспорта — везде, где частично записанный
// файл недопустим.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"telegram-chanreader/internal/infra/logger"
)

// DefaultFilePerm — права итогового файла при атомарной записи: только владелец.
const DefaultFilePerm os.FileMode = 0o600

// EnsureDir гарантирует наличие каталога для указанного файла.
// Пустой или "." каталог — no-op. Создание с правами 0o700.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// AtomicWriteFile атомарно записывает data в path: temp в той же директории →
// write → fsync → chmod → close → rename → fsync каталога. Либо остаётся
// старый файл, либо появляется полностью записанный новый. os.Rename атомарен
// только в пределах одного тома; fsync каталога — best-effort.
func AtomicWriteFile(path string, data []byte) error {
	clean := filepath.Clean(path)
	if err := EnsureDir(clean); err != nil {
		return err
	}
	dir := filepath.Dir(clean)

	tmp, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err = tmp.Chmod(DefaultFilePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmpName, clean); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Журналирование записи имени файла в каталоге; некоторые ФС игнорируют.
	if dirFile, openErr := os.Open(dir); openErr == nil {
		if syncErr := dirFile.Sync(); syncErr != nil {
			logger.Warnf("AtomicWriteFile: dir sync error: %v", syncErr)
		}
		_ = dirFile.Close()
	}
	return nil
}
