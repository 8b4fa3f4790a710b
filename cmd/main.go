package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/recall-backend/internal/ai"
	"github.com/yungbote/recall-backend/internal/clients/anthropic"
	"github.com/yungbote/recall-backend/internal/clients/openai"
	"github.com/yungbote/recall-backend/internal/clients/pinecone"
	"github.com/yungbote/recall-backend/internal/db"
	"github.com/yungbote/recall-backend/internal/handlers"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/memory/chromemstore"
	"github.com/yungbote/recall-backend/internal/platform/envutil"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/repos"
	"github.com/yungbote/recall-backend/internal/server"
	"github.com/yungbote/recall-backend/internal/services"
	"github.com/yungbote/recall-backend/internal/ws"
)

func main() {
	mode := envutil.GetEnv("APP_MODE", "development", nil)

	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres connection failed", "error", err.Error())
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres migration failed", "error", err.Error())
	}
	gdb := pg.DB()

	userRepo := repos.NewUserRepo(gdb, log)
	chatRepo := repos.NewChatRepo(gdb, log)
	messageRepo := repos.NewMessageRepo(gdb, log)

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err.Error())
	}

	var generator ai.Generator = openaiClient
	if strings.EqualFold(envutil.GetEnv("AI_PROVIDER", "openai", log), "anthropic") {
		anthropicGen, err := anthropic.NewGenerator(log)
		if err != nil {
			log.Fatal("Anthropic client init failed", "error", err.Error())
		}
		generator = anthropicGen
		log.Info("Reply generation backed by Anthropic")
	}

	memoryStore, err := buildMemoryStore(log)
	if err != nil {
		log.Fatal("Memory store init failed", "error", err.Error())
	}

	jwtSecret := envutil.GetEnv("JWT_SECRET_KEY", "", log)
	tokenTTL := envutil.GetEnvAsDuration("TOKEN_TTL", 7*24*time.Hour, log)
	authService, err := services.NewAuthService(log, userRepo, jwtSecret, tokenTTL)
	if err != nil {
		log.Fatal("Auth service init failed", "error", err.Error())
	}

	chatService := services.NewChatService(log, chatRepo, messageRepo, memoryStore)
	turnService := services.NewTurnService(log, chatRepo, messageRepo, memoryStore, openaiClient, generator)

	cookieSecure := strings.EqualFold(mode, "production")
	authHandler := handlers.NewAuthHandler(log, authService, cookieSecure)
	chatHandler := handlers.NewChatHandler(log, chatService)
	healthHandler := handlers.NewHealthHandler(gdb)
	gateway := ws.NewGateway(log, authService, turnService)

	router := server.NewRouter(log, authService, authHandler, chatHandler, healthHandler, gateway)

	addr := ":" + envutil.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "addr", addr, "mode", mode)
	if err := router.Run(addr); err != nil {
		log.Fatal("Server exited", "error", err.Error())
	}
}

// buildMemoryStore picks the vector backend: Pinecone in production,
// the embedded chromem store everywhere else.
func buildMemoryStore(log *logger.Logger) (memory.Store, error) {
	backend := envutil.GetEnv("VECTOR_BACKEND", "chromem", log)
	switch strings.ToLower(backend) {
	case "pinecone":
		pc, err := pinecone.New(log, pinecone.Config{
			APIKey: os.Getenv("PINECONE_API_KEY"),
		})
		if err != nil {
			return nil, err
		}
		return pinecone.NewMemoryStore(log, pc)
	case "chromem":
		return chromemstore.New(log)
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", backend)
	}
}
