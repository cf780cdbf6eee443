// Commande ownertoken émet un jeton JWT pour les routes /admin.
//
//	go run ./cmd/ownertoken -ttl 720h
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/config"
)

func main() {
	ttl := flag.Duration("ttl", 24*time.Hour, "durée de validité du jeton")
	subject := flag.String("subject", "", "sujet du jeton (OWNER_SUBJECT par défaut)")
	flag.Parse()

	config.Load()
	cfg := config.FromEnv()
	if *subject == "" {
		*subject = cfg.OwnerSubject
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		log.Fatalf("❌ Génération du jeton: %v", err)
	}
	fmt.Println(token)
}
