package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage общая ошибка хранилища. Вызывающий код не повторяет такие операции.
	ErrStorage  = errors.New("storage error")
	ErrNotFound = errors.New("record not found")
	// ErrClosed тоже ErrStorage: закрытое хранилище ничем не отличается от недоступного
	ErrClosed = fmt.Errorf("%w: storage is closed", ErrStorage)
)
