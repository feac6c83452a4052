package app

import "time"

// Application wires the config, logger, transport client, and the stores
// together. Stores are mutated only from the TUI update loop (or from a
// single CLI invocation); the bus fans mutation notifications back out so
// dependent views refetch.
type Application struct {
	Config Config
	Logger *Logger
	Client *Client
	Bus    *Bus

	Search    *SearchController
	Topics    *TopicStore
	Documents *DocumentRegistry
	Sessions  *SessionManager
	Chat      *ConversationEngine
}

func NewApplication(cfg Config) *Application {
	logger := NewLogger(DefaultLogWriter(cfg.LogFile))
	client := NewClient(cfg.BaseURL, time.Duration(cfg.TimeoutSec)*time.Second, logger)
	bus := NewBus()

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Client:    client,
		Bus:       bus,
		Search:    NewSearchController(client, logger, cfg.PageSize),
		Topics:    NewTopicStore(client, logger, bus),
		Documents: NewDocumentRegistry(client, logger, bus),
		Sessions:  NewSessionManager(client, logger, bus),
		Chat:      NewConversationEngine(client, logger),
	}
}
