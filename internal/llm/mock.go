package llm

import (
	"context"
	"sync/atomic"
	"time"
)

// MockClient permite tests sin llamar a un LLM real.
// Si Delay > 0 espera ese tiempo respetando la cancelación del ctx.
type MockClient struct {
	ProviderName string
	Response     string
	Err          error
	Delay        time.Duration

	calls     atomic.Int64
	lastInput atomic.Value
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	m.lastInput.Store(prompt)
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Calls devuelve cuántas veces se invocó Generate.
func (m *MockClient) Calls() int {
	return int(m.calls.Load())
}

// LastPrompt devuelve el último prompt recibido.
func (m *MockClient) LastPrompt() string {
	v, _ := m.lastInput.Load().(string)
	return v
}
