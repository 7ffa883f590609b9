package mirror

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/jobs"
)

func TestRegisterNothingEnabled(t *testing.T) {
	r := jobs.NewRouter()
	closers := Register(context.Background(), config.Default(), r, zerolog.Nop())
	assert.Empty(t, closers)
	assert.Empty(t, r.Types())
}

func TestRegisterNotion(t *testing.T) {
	cfg := config.Default()
	cfg.Notion = config.Notion{Enabled: true, Token: "secret", DatabaseID: "db"}

	r := jobs.NewRouter()
	closers := Register(context.Background(), cfg, r, zerolog.Nop())
	assert.Empty(t, closers)
	assert.Equal(t, []jobs.JobType{jobs.JobTypeSyncNotion}, r.Types())
}
