package advisor

import (
	"context"
	"fmt"
	"strings"
)

// DomainError is an expected negative answer: the user is not logged in, a job
// does not exist. The model receives it as {"error": Message}.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func domainErrorf(format string, args ...any) *DomainError {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

// ToolDispatchError is returned for a tool name the catalogue does not know.
type ToolDispatchError struct {
	Name string
}

func (e *ToolDispatchError) Error() string {
	return fmt.Sprintf("unsupported function call: %s", e.Name)
}

// ArgumentsError lists the schema violations of a call.
type ArgumentsError struct {
	Tool     ToolName
	Problems []string
}

func (e *ArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

type userIDKey struct{}

// WithUserID marks ctx as belonging to an authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFrom returns the authenticated user of ctx.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
