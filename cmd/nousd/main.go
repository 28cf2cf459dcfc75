package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nousapp/nous/internal/agent"
	"github.com/nousapp/nous/internal/ai"
	"github.com/nousapp/nous/internal/api"
	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/config"
	"github.com/nousapp/nous/internal/crypto"
	"github.com/nousapp/nous/internal/llm"
	"github.com/nousapp/nous/internal/logger"
	"github.com/nousapp/nous/internal/store"
)

func main() {
	// a .env file is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		logger.L.Error("failed to initialize encryption", "error", err)
		os.Exit(1)
	}
	codec := crypto.NewCodec(cipher)

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		logger.L.Error("failed to open database", "error", err, "path", cfg.DB.Path)
		os.Exit(1)
	}
	defer st.Close()

	authSvc, err := auth.New(cfg.Auth)
	if err != nil {
		logger.L.Error("failed to initialize auth", "error", err)
		os.Exit(1)
	}

	aiSvc := ai.New(llm.NewClient(cfg.LLM), cfg.LLM, cfg.Chat)
	ag := agent.New(aiSvc, st, codec, cfg.Chat)

	handler := api.New(st, ag, aiSvc, codec, authSvc)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, handler.Router()); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
