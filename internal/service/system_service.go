package service

import (
	"context"

	"starshop/internal/infrastructure/filestore"
)

const DefaultLogLines = 40

// SystemService exposes the application log to admins.
type SystemService struct {
	logFile string
}

func NewSystemService(logFile string) *SystemService {
	return &SystemService{logFile: logFile}
}

// TailLog returns the last n lines of the application log.
func (s *SystemService) TailLog(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultLogLines
	}
	return filestore.Tail(ctx, s.logFile, n)
}
