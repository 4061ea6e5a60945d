package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/mama165/sdk-go/logs"
	"github.com/rs/cors"

	"msgboard/internal/config"
	"msgboard/internal/server"
)

func main() {
	// .envファイルと環境変数を読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}

	log := logs.GetLoggerFromString(cfg.LogLevel)

	// メッセージストアを初期化
	store, err := server.OpenStore(cfg.StorePath)
	if err != nil {
		log.Error("❌ Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// ハンドラー初期化
	h := server.New(store, cfg, log)

	// ブロードキャスターを開始
	go h.HandleBroadcast()

	router := h.SetupRouter()

	// CORS対応
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	httpHandler := c.Handler(router)

	storage := "in-memory"
	if cfg.StorePath != "" {
		storage = cfg.StorePath
	}

	fmt.Println("========================================")
	fmt.Println("  Message Board Store")
	fmt.Println("========================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Server: http://localhost:%s\n", cfg.ServerPort)
	fmt.Printf("  Events: http://localhost:%s/events/\n", cfg.ServerPort)
	fmt.Printf("  WebSocket: ws://localhost:%s/ws\n", cfg.ServerPort)
	fmt.Printf("  Storage: %s\n", storage)
	fmt.Printf("  Allowed Origins: %v\n", cfg.AllowedOrigins)
	fmt.Println("========================================")
	log.Info("🚀 Server started successfully")

	if err := http.ListenAndServe(":"+cfg.ServerPort, httpHandler); err != nil {
		log.Error("❌ Server stopped", "error", err)
		os.Exit(1)
	}
}
