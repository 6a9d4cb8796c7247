package engine

import (
	"errors"
	"fmt"
)

// Виды ошибок движка. Обработчики транслируют их в HTTP-статусы.
var (
	// пороги не настроены ни в каталоге, ни в привязке
	ErrNoThreshold = errors.New("no threshold configured")

	// конкурентная запись по той же привязке / тому же периоду
	ErrConflict = errors.New("concurrent update conflict")

	// недопустимый переход жизненного цикла
	ErrWorkflowState = errors.New("invalid workflow state")

	// период уже зафиксирован
	ErrDuplicateCommit = errors.New("period already committed")

	// срок действия исключения в прошлом
	ErrExpiredValidity = errors.New("valid_until must be in the future")

	ErrNotFound = errors.New("record not found")
)

// workflowErr — ErrWorkflowState с текущим авторитетным статусом,
// чтобы вызывающая сторона могла синхронизироваться.
func workflowErr(current string) error {
	return fmt.Errorf("%w: current status is %q", ErrWorkflowState, current)
}
