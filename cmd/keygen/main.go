package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/arnavshah/oncall-rota-go/pkg/auth"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	name := flag.String("name", "", "name to embed in the API key, e.g. a team or bot identifier")
	flag.Parse()
	if *name == "" && flag.NArg() > 0 {
		*name = flag.Arg(0)
	}
	if *name == "" {
		fmt.Println("Usage: keygen -name <key name>")
		os.Exit(1)
	}
	if os.Getenv("API_MASTER_SECRET") == "" {
		fmt.Println("Error: API_MASTER_SECRET is not set")
		os.Exit(1)
	}

	key := auth.GenerateHMACKey(*name)
	fmt.Printf("API key for %s:\n%s\n", *name, key)
	fmt.Println("\nSend it as 'Authorization: Bearer <key>' on /api routes.")
}
