package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nucleus-Lab/daocouncil/internal/api"
	"github.com/Nucleus-Lab/daocouncil/internal/auth"
	"github.com/Nucleus-Lab/daocouncil/internal/config"
	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/debate"
	"github.com/Nucleus-Lab/daocouncil/internal/hub"
	"github.com/Nucleus-Lab/daocouncil/internal/jury"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
	"github.com/Nucleus-Lab/daocouncil/internal/mcp"
	"github.com/Nucleus-Lab/daocouncil/internal/settlement"
	"github.com/Nucleus-Lab/daocouncil/internal/task"
	"github.com/Nucleus-Lab/daocouncil/internal/wallet"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Printf("daocouncil %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`daocouncil — AI-juried debates with on-chain settlement

Usage:
  daocouncil serve [--config config.toml] [--addr :8080]
  daocouncil mcp [--config config.toml]
  daocouncil version
  daocouncil help

Commands:
  serve     Start the HTTP server
  mcp       Serve the debate tools over MCP stdio
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	svc, database, runner := buildService(cfg)
	defer database.Close()
	defer runner.Wait()

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	apiHandler := api.New(svc, a)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	log.Printf("daocouncil %s (%s) listening on %s", version, cfg.Instance.Name, cfg.Server.Addr)
	log.Printf("database: %s", cfg.Database.Path)
	log.Printf("wallet agent: %s", cfg.Agent.BaseURL)
	log.Printf("chain rpc: %s", cfg.Chain.RPCURL)
	log.Printf("settlement policy: %s", cfg.Settlement.Policy)

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	svc, database, runner := buildService(cfg)
	defer database.Close()
	defer runner.Wait()

	srv := mcp.NewServer(svc, version)
	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

// buildService wires the full pipeline: store, LLM fallback chain, wallet
// agent and chain reader, jury engine, settlement orchestrator, debate
// service.
func buildService(cfg *config.Config) (*debate.Service, *db.DB, *task.Runner) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}

	llmClient := buildLLMClient(cfg)
	h := hub.New()
	runner := task.NewRunner()

	agent := wallet.NewHTTPAgentClient(cfg.Agent.BaseURL,
		time.Duration(cfg.Agent.TimeoutSec)*time.Second)
	chain := wallet.NewRPCChainReader(cfg.Chain.RPCURL,
		time.Duration(cfg.Chain.TimeoutSec)*time.Second)
	provisioner := wallet.NewProvisioner(database, agent)

	judge := jury.NewLLMJudge(llmClient, cfg.LLM.Model)
	engine := jury.NewEngine(database, judge, h)

	orchestrator := settlement.NewOrchestrator(database, agent, chain, h,
		llmClient, cfg.LLM.Model, cfg.Settlement)

	svc := debate.NewService(database, h, runner, provisioner, chain,
		engine, orchestrator, llmClient, cfg.LLM.Model, cfg.Debate)

	return svc, database, runner
}

func buildLLMClient(cfg *config.Config) *llm.Client {
	var providers []llm.Provider
	if cfg.LLM.AnthropicAPIKey != "" {
		providers = append(providers, llm.NewAnthropicProvider(cfg.LLM.AnthropicAPIKey))
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		providers = append(providers, llm.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey))
	}
	if len(providers) == 0 {
		log.Printf("warning: no LLM provider keys configured; juror evaluation will fail")
	}
	return llm.New(providers)
}
