// Package mocks provides gomock implementations of the flow engine ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	sink := mocks.NewMockEventSink(ctrl)
//	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
package mocks

// Generate mock for EventSink interface from internal/ports package.
// This creates MockEventSink with methods for all EventSink interface methods:
// Publish
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_sink_mock.go github.com/target/idflow/internal/ports EventSink

// Generate mock for TokenInspector interface from internal/ports package.
// This creates MockTokenInspector with methods for all TokenInspector interface methods:
// Inspect
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_inspector_mock.go github.com/target/idflow/internal/ports TokenInspector
