// File: cmd/diagnostic/llm_diagnostic.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/iyunix/go-chatsync/internal/config"
	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services/ai"
)

func main() {
	prompt := flag.String("prompt", "What is the answer to life, universe and everything?", "Prompt to send")
	stream := flag.Bool("stream", false, "Use the streaming endpoint")
	flag.Parse()

	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)

	cfg := config.Load()
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Model = cfg.ChatModel

	provider, err := ai.NewOpenAIProvider(aiConfig)
	if err != nil {
		fail.Printf("provider init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Testing model %s at %s\n", aiConfig.Model, baseURLOrDefault(aiConfig.BaseURL))

	ctx, cancel := context.WithTimeout(context.Background(), aiConfig.Timeout)
	defer cancel()

	history := []domain.Message{domain.UserMessage(*prompt)}
	start := time.Now()

	var reply string
	if *stream {
		var sb strings.Builder
		fragments := 0
		err = provider.StreamComplete(ctx, history, func(delta string) error {
			fragments++
			sb.WriteString(delta)
			return nil
		})
		reply = sb.String()
		fmt.Printf("fragments received: %d\n", fragments)
	} else {
		reply, err = provider.Complete(ctx, history)
	}

	if err != nil {
		fail.Printf("completion failed after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
		os.Exit(1)
	}
	ok.Printf("OK in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Println(reply)
}

func baseURLOrDefault(url string) string {
	if url == "" {
		return "the provider default"
	}
	return url
}
