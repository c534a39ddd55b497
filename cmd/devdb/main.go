package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/retroboard/internal/database"
	"github.com/localnerve/retroboard/internal/database/devcontainer"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var dbType string
	flag.StringVar(&dbType, "type", "", "postgres or mariadb (default DB_TYPE, then postgres)")
	var image string
	flag.StringVar(&image, "image", "", "container image override")
	var tmpfs bool
	flag.BoolVar(&tmpfs, "tmpfs", true, "keep the database files in memory")
	var setup bool
	flag.BoolVar(&setup, "setup", true, "migrate the schema and create indexes once started")
	flag.Parse()

	usage := `
Run a throwaway retroboard database in a container with the environment variables from the .env file.

Usage:

devdb [-h] [-f ENV_FILE_PATH] [-type postgres|mariadb] [-image IMAGE] [-tmpfs=false] [-setup=false]

ENV_FILE_PATH: path to the .env file (DB_DATABASE, DB_USER, DB_PASSWORD are honored)

example
  devdb -f /path/to/something/.env -type mariadb
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}
	if dbType == "" {
		dbType = os.Getenv("DB_TYPE")
	}

	ctx := context.Background()
	dev, err := devcontainer.Start(ctx, devcontainer.Options{
		DBType:   dbType,
		Image:    image,
		Database: os.Getenv("DB_DATABASE"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Tmpfs:    tmpfs,
	})
	if err != nil {
		log.Fatalf("Failed to start dev database: %v\n", err)
	}

	if setup {
		db, err := database.Connect(dev.Config)
		if err != nil {
			_ = dev.Terminate(ctx)
			log.Fatalf("Failed to connect to dev database: %v\n", err)
		}
		result, err := database.SetupSchema(db)
		_ = database.Close(db)
		if err != nil {
			_ = dev.Terminate(ctx)
			log.Fatalf("Failed to set up schema: %v\n", err)
		}
		log.Printf("Schema ready: %d models migrated, %d statements executed\n", result.Migrated, result.Statements)
	}

	cfg := dev.Config
	fmt.Printf("DB_TYPE=%s\nDB_HOST=%s\nDB_PORT=%s\nDB_DATABASE=%s\nDB_USER=%s\nDB_PASSWORD=%s\n",
		cfg.DBType, cfg.DBHost, cfg.DBPort, cfg.DBDatabase, cfg.DBUser, cfg.DBPassword)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating dev database...\n", sig)
	if err := dev.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate dev database: %v\n", err)
	}
}
