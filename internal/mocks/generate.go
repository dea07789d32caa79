// Package mocks provides gomock mocks for the core contracts.
//
// The mocks are generated with go.uber.org/mock (gomock) from the interfaces
// in internal/core. To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockJobStore(ctrl)
//	store.EXPECT().Claim(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/leadforge/leadforge/internal/core JobStore

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=alert_sender_mock.go github.com/leadforge/leadforge/internal/core AlertSender
