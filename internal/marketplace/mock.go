package marketplace

import "context"

// MockAdapter implements Adapter for tests and for wiring the engine
// without live credentials.
type MockAdapter struct {
	Conn

	Name        string
	PullResults []*PullResult
	PullErr     error
	PullCalls   int
}

// NewMockAdapter creates a connected mock for the given platform.
func NewMockAdapter(name string) *MockAdapter {
	m := &MockAdapter{Name: name}
	return m
}

func (m *MockAdapter) Platform() string { return m.Name }

func (m *MockAdapter) Available() bool { return true }

func (m *MockAdapter) Connect(ctx context.Context) error {
	m.MarkConnecting()
	m.MarkConnected()
	return nil
}

func (m *MockAdapter) Disconnect() { m.MarkDisconnected() }

func (m *MockAdapter) Pull(ctx context.Context) (*PullResult, error) {
	if err := m.BeginSync(); err != nil {
		return nil, err
	}
	defer m.EndSync()

	m.PullCalls++
	if m.PullErr != nil {
		return nil, m.PullErr
	}
	if len(m.PullResults) > 0 {
		res := m.PullResults[0]
		if len(m.PullResults) > 1 {
			m.PullResults = m.PullResults[1:]
		}
		return res, nil
	}
	return &PullResult{Platform: m.Name}, nil
}

func (m *MockAdapter) Push(ctx context.Context, itemID string) (*PushResult, error) {
	if err := m.BeginSync(); err != nil {
		return nil, err
	}
	defer m.EndSync()
	return &PushResult{Success: true, ExternalRef: "mock-" + itemID}, nil
}

func (m *MockAdapter) Publish(ctx context.Context, itemID string) (*PushResult, error) {
	return m.Push(ctx, itemID)
}

func (m *MockAdapter) End(ctx context.Context, itemID string) (*PushResult, error) {
	if err := m.BeginSync(); err != nil {
		return nil, err
	}
	defer m.EndSync()
	return &PushResult{Success: true}, nil
}

// Ensure MockAdapter implements Adapter.
var _ Adapter = (*MockAdapter)(nil)
