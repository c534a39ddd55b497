// Package devcontainer starts throwaway database servers for local development and integration tests.
package devcontainer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/localnerve/retroboard/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Default images per database type
const (
	PostgresImage = "postgres:16-alpine"
	MariaDBImage  = "mariadb:11"
)

// Options configure a dev database container
type Options struct {
	DBType   string // postgres or mariadb
	Image    string // overrides the default image
	Database string
	User     string
	Password string
	// Tmpfs keeps the data directory in memory
	Tmpfs bool
}

// Container is a running dev database
type Container struct {
	testcontainers.Container
	Config *config.Config
}

// Start launches the database container and returns a config pointing at it
func Start(ctx context.Context, opts Options) (*Container, error) {
	opts = withDefaults(opts)

	portNumber, dataDir := "5432", "/var/lib/postgresql/data"
	waitFor := wait.ForLog("database system is ready to accept connections").WithOccurrence(2)
	if opts.DBType != "postgres" {
		portNumber, dataDir = "3306", "/var/lib/mysql"
		waitFor = wait.ForLog("ready for connections").WithOccurrence(2)
	}

	tcpPort, err := nat.NewPort("tcp", portNumber)
	if err != nil {
		return nil, fmt.Errorf("create port: %w", err)
	}

	exists, err := ImageExists(ctx, opts.Image)
	if err != nil {
		log.Printf("Unable to list docker images: %v", err)
	} else if !exists {
		log.Printf("Image %s does not exist locally, pulling...", opts.Image)
	}

	hostConfigModifier := func(hostConfig *container.HostConfig) {
		if opts.Tmpfs {
			hostConfig.Tmpfs = map[string]string{dataDir: "rw"}
		}
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:              opts.Image,
			ExposedPorts:       []string{string(tcpPort)},
			Env:                initEnv(opts),
			HostConfigModifier: hostConfigModifier,
			WaitingFor: wait.ForAll(
				waitFor,
				wait.ForListeningPort(tcpPort),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}
	mapped, err := c.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}

	cfg := &config.Config{
		DBType:            opts.DBType,
		DBHost:            host,
		DBPort:            mapped.Port(),
		DBDatabase:        opts.Database,
		DBUser:            opts.User,
		DBPassword:        opts.Password,
		DBConnectionLimit: 5,
	}

	if opts.DBType != "postgres" {
		if err := waitForMySQL(ctx, cfg); err != nil {
			_ = c.Terminate(ctx)
			return nil, err
		}
	}

	log.Printf("%s started at %s:%s", opts.Image, host, mapped.Port())

	return &Container{Container: c, Config: cfg}, nil
}

func withDefaults(opts Options) Options {
	if opts.DBType == "" || opts.DBType == "postgresql" {
		opts.DBType = "postgres"
	}
	if opts.DBType == "mysql" {
		opts.DBType = "mariadb"
	}
	if opts.Image == "" {
		opts.Image = PostgresImage
		if opts.DBType == "mariadb" {
			opts.Image = MariaDBImage
		}
	}
	if opts.Database == "" {
		opts.Database = "retroboard"
	}
	if opts.User == "" {
		opts.User = "retro"
	}
	if opts.Password == "" {
		opts.Password = "retro"
	}
	return opts
}

func initEnv(opts Options) map[string]string {
	switch opts.DBType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": opts.Password,
			"POSTGRES_USER":     opts.User,
			"POSTGRES_DB":       opts.Database,
		}
	default:
		return map[string]string{
			"MARIADB_RANDOM_ROOT_PASSWORD": "yes",
			"MARIADB_DATABASE":             opts.Database,
			"MARIADB_USER":                 opts.User,
			"MARIADB_PASSWORD":             opts.Password,
		}
	}
}

// waitForMySQL pings until the server accepts the application user
func waitForMySQL(ctx context.Context, cfg *config.Config) error {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.DBUser
	dsn.Passwd = cfg.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = cfg.DBHost + ":" + cfg.DBPort
	dsn.DBName = cfg.DBDatabase

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return fmt.Errorf("connect to MariaDB for setup: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
}

// ImageExists reports whether the docker daemon already has imageName
func ImageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}
