package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/vytor/linguatrack/internal/models"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueReminders() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockJobQueue) EnqueueImport(job models.ImportJob, data []byte) error {
	args := m.Called(job, data)
	return args.Error(0)
}
