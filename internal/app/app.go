// Package app wires the application together: database pool, Genkit,
// embedder, knowledge store, model and engine are constructed once at
// startup and shared for the process lifetime.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okampo/ragline/internal/config"
	"github.com/okampo/ragline/internal/engine"
	"github.com/okampo/ragline/internal/knowledge"
	"github.com/okampo/ragline/internal/log"
	"github.com/okampo/ragline/internal/model"
)

// App is the application container.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge *knowledge.Store
	Model     *model.Generator
	Engine    *engine.Engine
}

// Close releases all resources held by the App.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	return nil
}
