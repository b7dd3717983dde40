package responses_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"vipclub-bot/internal/responses"
	"vipclub-bot/internal/store"
)

func TestLookup(t *testing.T) {
	mem := store.NewMemory()
	mem.SetResponse("help", "Comandos: /start, /status")
	svc := responses.NewService(mem, nil)

	assert.Equal(t, "Comandos: /start, /status", svc.Help(context.Background()))
}

func TestLookupMissingKey(t *testing.T) {
	svc := responses.NewService(store.NewMemory(), nil)

	got := svc.Lookup(context.Background(), "inexistente")
	assert.Equal(t, "Mensagem não configurada: inexistente", got)
}

func TestFormatInterpolates(t *testing.T) {
	mem := store.NewMemory()
	mem.SetResponse("bem_vindo", "Olá, %s! Bem-vindo ao clube VIP.")
	svc := responses.NewService(mem, nil)

	assert.Equal(t, "Olá, Maria! Bem-vindo ao clube VIP.", svc.Welcome(context.Background(), "Maria"))
}
