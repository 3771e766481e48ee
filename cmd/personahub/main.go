// Command personahub wires the full stack and runs an interactive console
// chat against a persona. The HTTP surface lives elsewhere; this binary is
// the operational entry point for local use and smoke testing.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"personahub/agent"
	"personahub/auth"
	"personahub/chat"
	"personahub/config"
	"personahub/logging"
	"personahub/model"
	"personahub/model/anthropic"
	"personahub/model/openai"
	"personahub/objectstore"
	"personahub/store"
	"personahub/tool"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	verbose := flag.Bool("verbose", false, "mirror agent trace output to stdout")
	flag.Parse()

	zlog, _ := zap.NewProduction()
	defer zlog.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal("Failed to load config", zap.Error(err))
	}

	log := logging.NewZapAdapter(zlog)
	ctx := context.Background()

	// Storage.
	var st *store.Store
	if cfg.Database.URL != "" {
		log.Info("using postgres storage")
		st, err = store.NewPostgres(cfg.Database.URL, store.WithLogger(log))
	} else {
		log.Info("using sqlite storage", "path", cfg.Database.SQLitePath)
		st, err = store.NewSQLite(cfg.Database.SQLitePath, store.WithLogger(log))
	}
	if err != nil {
		zlog.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Object store. An unreachable endpoint downgrades to in-memory so
	// chat keeps working without file support surviving restarts.
	var objects objectstore.Store
	minioStore, err := objectstore.NewMinIO(ctx, objectstore.MinIOOptions{
		Endpoint:  cfg.Objects.Endpoint,
		AccessKey: cfg.Objects.AccessKey,
		SecretKey: cfg.Objects.SecretKey,
		Bucket:    cfg.Objects.Bucket,
		UseSSL:    cfg.Objects.UseSSL,
		Logger:    log,
	})
	if err != nil {
		log.Warn("object store unavailable, falling back to in-memory", "error", err)
		objects = objectstore.NewMemory()
	} else {
		objects = minioStore
	}

	// Model registry and catalog.
	models := model.NewRegistry()
	catalog := model.NewCatalog(cfg.Models.CatalogTTL)
	if cfg.Models.OpenAIAPIKey != "" {
		models.Register("openai", openai.Factory(cfg.Models.OpenAIAPIKey))
		catalog.RegisterLister("openai", openai.ListModels(cfg.Models.OpenAIAPIKey))
	}
	if cfg.Models.AnthropicAPIKey != "" {
		models.Register("anthropic", anthropic.Factory(cfg.Models.AnthropicAPIKey))
		catalog.RegisterLister("anthropic", anthropic.ListModels(cfg.Models.AnthropicAPIKey))
	}

	// Tool registry. The vision backend for file processing is fixed at
	// startup from configuration.
	tools := tool.NewRegistry()
	tools.Register("web_search", func() tool.Tool { return tool.NewSearchTool() })
	tools.Register("youtube", func() tool.Tool { return tool.NewYouTubeTool() })
	if visionBackend, err := models.Resolve(cfg.Models.VisionProvider, cfg.Models.VisionModel); err == nil {
		tools.Register("process_file", func() tool.Tool {
			return tool.NewFileProcessorTool(st, objects, visionBackend)
		})
	} else {
		log.Warn("file processing disabled", "error", err)
	}
	if cfg.Mail.ClientID != "" {
		mailOpts := tool.MailOptions{
			ClientID:     cfg.Mail.ClientID,
			ClientSecret: cfg.Mail.ClientSecret,
			RefreshToken: cfg.Mail.RefreshToken,
			From:         cfg.Mail.From,
		}
		tools.Register("mail", func() tool.Tool { return tool.NewMailTool(ctx, mailOpts) })
	}

	builder := agent.NewBuilder(models, tools, log)
	pipeline := chat.NewPipeline(st, builder, func(o *chat.Options) {
		o.Timeout = cfg.Chat.Timeout
		o.Logger = log
		if *verbose {
			o.Live = os.Stdout
		}
	})

	admin, err := seedAdmin(st, cfg)
	if err != nil {
		zlog.Fatal("Failed to seed admin user", zap.Error(err))
	}

	if err := runConsole(ctx, st, pipeline, catalog, admin); err != nil {
		zlog.Fatal("Console error", zap.Error(err))
	}
}

// seedAdmin ensures the bootstrap admin account exists.
func seedAdmin(st *store.Store, cfg *config.Config) (*store.User, error) {
	if existing, err := st.GetUserByEmail(cfg.Auth.AdminEmail); err == nil {
		return existing, nil
	}

	password := cfg.Auth.AdminPassword
	if password == "" {
		password = "admin"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &store.User{
		Email:        cfg.Auth.AdminEmail,
		Name:         "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := st.CreateUser(admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// runConsole drives an interactive chat session against a chosen persona.
func runConsole(ctx context.Context, st *store.Store, pipeline *chat.Pipeline, catalog *model.Catalog, user *store.User) error {
	personas, err := st.UserPersonas(user.ID)
	if err != nil {
		return err
	}
	if len(personas) == 0 {
		fmt.Println("No personas assigned. Create a persona and assign it to the admin user first.")
		return nil
	}

	if entries := catalog.Models(ctx); len(entries) > 0 {
		fmt.Println("Available models:")
		for _, e := range entries {
			fmt.Printf("  %s/%s\n", e.Provider, e.ID)
		}
	}

	fmt.Println("Available personas:")
	for _, p := range personas {
		fmt.Printf("  [%d] %s - %s\n", p.ID, p.Name, p.Description)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Persona id: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	var personaID uint
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "%d", &personaID); err != nil {
		return fmt.Errorf("invalid persona id: %w", err)
	}

	conv := &store.Conversation{UserID: user.ID, PersonaID: personaID, Title: "Console session"}
	if err := st.CreateConversation(conv); err != nil {
		return err
	}

	fmt.Println("Chat started. Empty line exits.")
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		text := strings.TrimSpace(line)
		if text == "" {
			return nil
		}

		for ev := range pipeline.ProcessMessageStream(ctx, user.ID, conv.ID, text, nil) {
			switch ev.Type {
			case chat.EventChunk:
				fmt.Print(ev.Content)
			case chat.EventComplete:
				fmt.Println()
			case chat.EventError:
				fmt.Printf("error: %s\n", ev.Err)
			}
		}
	}
}
