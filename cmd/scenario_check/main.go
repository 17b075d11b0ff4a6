package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"tax-advisor/internal/config"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	rules, err := config.LoadRules(cfg.RulesFile, cfg.DefaultRuleSet())
	if err != nil {
		log.Fatal(err)
	}

	var passed, failed int
	for _, sc := range scenarios() {
		fmt.Printf("%s[Escenario]%s %s\n", colorCyan, colorReset, sc.Name)
		results, err := sc.Run(ctx, rules)
		if err != nil {
			fmt.Printf("  %sERROR%s %v\n\n", colorRed, colorReset, err)
			failed++
			continue
		}
		for _, r := range results {
			if r.OK {
				passed++
				fmt.Printf("  %sOK%s   %s (%s)\n", colorGreen, colorReset, r.Check, r.Detail)
			} else {
				failed++
				fmt.Printf("  %sFAIL%s %s (%s)\n", colorRed, colorReset, r.Check, r.Detail)
			}
		}
		fmt.Println()
	}

	fmt.Println("==== Resumen ====")
	fmt.Printf("Checks OK: %d | Fallidos: %d\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
