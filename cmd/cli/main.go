package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glizzus/sound-clips/internal/clipstore"
	"github.com/glizzus/sound-clips/internal/config"
	"github.com/glizzus/sound-clips/internal/datalayer"
	"github.com/glizzus/sound-clips/internal/eventlog"
	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/schedule"
	"github.com/glizzus/sound-clips/internal/soundboard"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

var uuidGenerator = generator.UUIDV4Generator{}

var ownerFlag = &cli.StringFlag{
	Name:     "owner",
	Usage:    "Discord user ID that owns the clips",
	Required: true,
}

// openBoard builds a clip board backed by the configured database and
// storage. It cannot play clips.
func openBoard(c *cli.Context) (*soundboard.Service, error) {
	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	pool, err := datalayer.NewPostgresPoolFromEnv(c.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	blobs, err := datalayer.NewBlobStorageFromConfig(c.Context, storageConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip storage: %w", err)
	}

	return soundboard.NewService(
		repository.NewPostgresClipRepository(pool, &uuidGenerator),
		clipstore.New(blobs, slog.Default()),
		nil,
		soundboard.Options{MaxClipSize: storageConfig.MaxClipSize},
	), nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "sound-clips-cli",
		Description: "A development CLI tool for managing clips without Discord",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the clips a user owns",
				Flags: []cli.Flag{ownerFlag},
				Action: func(c *cli.Context) error {
					board, err := openBoard(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					clips, err := board.List(c.Context, c.String("owner"))
					if err != nil {
						return cli.Exit("Failed to list clips: "+err.Error(), 1)
					}
					if len(clips) == 0 {
						log.Println("No clips found for the specified user.")
						return nil
					}
					for _, clip := range clips {
						log.Printf("%s\t%s\t%s", clip.Name, clip.Filename, clip.Digest)
					}
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "Upload a file, or reuse a stored payload, as a new clip",
				Flags: []cli.Flag{
					ownerFlag,
					&cli.StringFlag{Name: "name", Usage: "Name of the new clip", Required: true},
					&cli.PathFlag{Name: "file", Usage: "Audio file to upload"},
					&cli.StringFlag{Name: "digest", Usage: "Digest of an already stored payload"},
					&cli.StringFlag{Name: "filename", Usage: "Filename to record with --digest, defaults to the digest"},
				},
				Action: func(c *cli.Context) error {
					var source soundboard.UploadSource
					switch {
					case c.String("file") != "" && c.String("digest") != "":
						return cli.Exit("Use either --file or --digest, not both", 1)
					case c.String("file") != "":
						data, err := os.ReadFile(c.String("file"))
						if err != nil {
							return cli.Exit("Failed to read file: "+err.Error(), 1)
						}
						source = soundboard.Attachment{Data: data, Filename: filepath.Base(c.String("file"))}
					case c.String("digest") != "":
						filename := c.String("filename")
						if filename == "" {
							filename = c.String("digest")
						}
						source = soundboard.ExistingClip{Digest: c.String("digest"), Filename: filename}
					default:
						return cli.Exit("Please provide --file or --digest", 1)
					}

					board, err := openBoard(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					clip, err := board.Upload(c.Context, c.String("owner"), c.String("name"), source)
					if err != nil {
						return cli.Exit("Failed to add clip: "+err.Error(), 1)
					}
					log.Printf("Clip %s added with digest %s.", clip.Name, clip.Digest)
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove one of a user's clips",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{ownerFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("Please provide exactly one clip name", 1)
					}
					board, err := openBoard(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if err := board.Remove(c.Context, c.String("owner"), c.Args().First()); err != nil {
						return cli.Exit("Failed to remove clip: "+err.Error(), 1)
					}
					log.Println("Clip removed successfully.")
					return nil
				},
			},
			{
				Name:  "gc",
				Usage: "Delete stored payloads no clip references",
				Action: func(c *cli.Context) error {
					board, err := openBoard(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					removed, err := board.CollectGarbage(c.Context)
					for _, digest := range removed {
						log.Printf("removed %s", digest)
					}
					if err != nil {
						return cli.Exit("Failed to collect garbage: "+err.Error(), 1)
					}
					log.Printf("%d unreferenced payloads removed.", len(removed))
					return nil
				},
			},
			{
				Name:  "gc-schedule",
				Usage: "Show when the worker will next sweep clip storage",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Value: 5, Usage: "Number of run times to show"},
				},
				Action: func(c *cli.Context) error {
					storageConfig, err := config.NewStorageConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load storage config: "+err.Error(), 1)
					}
					if storageConfig.GCCron == "" {
						log.Println("Sweeping is disabled.")
						return nil
					}
					times, err := schedule.NextRunTimes(storageConfig.GCCron, c.Int("count"))
					if err != nil {
						return cli.Exit("Failed to compute run times: "+err.Error(), 1)
					}
					for _, at := range times {
						log.Println(at.Format("2006-01-02 15:04:05 MST"))
					}
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "Show recent playback events recorded in Redis",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "count", Value: 20, Usage: "Number of events to show"},
				},
				Action: func(c *cli.Context) error {
					redisConfig, err := config.NewRedisConfigFromEnv()
					if err != nil {
						return cli.Exit("Failed to load redis config: "+err.Error(), 1)
					}
					if !redisConfig.Enabled() {
						return cli.Exit("REDIS_ADDR is not set", 1)
					}

					rdb := redis.NewClient(&redis.Options{
						Addr:     redisConfig.Addr,
						Password: redisConfig.Password,
					})
					defer rdb.Close()

					entries, err := eventlog.NewRedisEventLog(rdb, redisConfig.Stream).Recent(c.Context, c.Int64("count"))
					if err != nil {
						return cli.Exit("Failed to read playback history: "+err.Error(), 1)
					}
					for _, entry := range entries {
						line := fmt.Sprintf(
							"%s %-8s guild=%s channel=%s requester=%s pending=%d",
							entry.At.Format("2006-01-02 15:04:05"),
							entry.Event,
							entry.GuildID,
							entry.ChannelID,
							entry.RequesterID,
							entry.Pending,
						)
						if entry.Error != "" {
							line += " error=" + entry.Error
						}
						log.Println(line)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
