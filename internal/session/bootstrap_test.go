package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"legiscope/internal/backend"
)

var codes = []backend.Code{{ID: "1", Label: "Code civil"}, {ID: "4", Label: "Code pénal"}}

func TestBootstrapIndependentFailures(t *testing.T) {
	tests := []struct {
		name      string
		fake      *fakeBackend
		wantConn  Connection
		wantCodes int
	}{
		{
			name:      "both succeed",
			fake:      &fakeBackend{health: backend.Health{Status: "ok"}, codes: codes},
			wantConn:  ConnOnline,
			wantCodes: 2,
		},
		{
			name:      "health fails, catalog still loads",
			fake:      &fakeBackend{healthErr: errors.New("refused"), codes: codes},
			wantConn:  ConnUnreachable,
			wantCodes: 2,
		},
		{
			name:      "catalog fails, health still applies",
			fake:      &fakeBackend{health: backend.Health{Mode: backend.ModeOffline}, codesErr: errors.New("500")},
			wantConn:  ConnOffline,
			wantCodes: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.fake)
			res := Bootstrap(context.Background(), tt.fake)
			s.ApplyBootstrap(res)

			assert.Equal(t, tt.wantConn, s.Connection())
			assert.Len(t, s.Scope().Catalog(), tt.wantCodes)
		})
	}
}

func TestConnectionStrings(t *testing.T) {
	assert.Equal(t, "en ligne", ConnOnline.String())
	assert.Equal(t, "hors ligne", ConnOffline.String())
	assert.Equal(t, "injoignable", ConnUnreachable.String())
	assert.Equal(t, "connexion...", ConnUnknown.String())
}
