package cli

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/sdejongh/syncbase/internal/platform"
	"github.com/sdejongh/syncbase/pkg/auth"
	"github.com/sdejongh/syncbase/pkg/config"
	"github.com/sdejongh/syncbase/pkg/logging"
	"github.com/sdejongh/syncbase/pkg/remote"
	"github.com/sdejongh/syncbase/pkg/storage"
	"github.com/sdejongh/syncbase/pkg/sync"
	"golang.org/x/oauth2"
)

// project bundles what a command needs to work on one project directory
type project struct {
	cfg     *config.Config
	dir     string
	session *sync.Session
	logger  logging.Logger
}

func (p *project) Close() error {
	return p.logger.Close()
}

// openProject loads the configuration, applies flags and connects to the
// configured remote.
func openProject(ctx context.Context, flags *TransferFlags) (*project, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cfg, flags); err != nil {
		return nil, err
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, fmt.Errorf("remote is not configured: %w", err)
	}

	dir := globalFlags.ProjectDir
	if dir == "" {
		dir = cfg.Project.Path
	}
	dir, err = platform.Absolute(dir)
	if err != nil {
		return nil, err
	}
	if err := checkProjectDir(dir); err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	workspace, err := storage.NewLocal(dir)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open project directory: %w", err)
	}

	store, rootID, err := openRemote(ctx, cfg, dir, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to connect to remote: %w", err)
	}

	name := cfg.Project.Name
	if name == "" {
		name = platform.ProjectName(dir)
	}

	session := &sync.Session{
		Workspace:   workspace,
		Remote:      store,
		RemoteRoot:  rootID,
		ProjectName: name,
		RemoteName:  cfg.Remote.Name,
		Author:      author(cfg),
	}
	if err := session.Validate(); err != nil {
		logger.Close()
		return nil, err
	}

	logger.Debug(ctx, "project opened", logging.Fields{
		"project": name,
		"dir":     dir,
		"remote":  cfg.Remote.Kind,
	})
	return &project{cfg: cfg, dir: dir, session: session, logger: logger}, nil
}

func author(cfg *config.Config) string {
	if cfg.Project.Author != "" {
		return cfg.Project.Author
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// openRemote builds the store selected by remote.kind and returns it with
// the ID of the folder mirroring the project root.
func openRemote(ctx context.Context, cfg *config.Config, projectDir string, logger logging.Logger) (remote.Store, string, error) {
	switch cfg.Remote.Kind {
	case config.RemoteFolder:
		path, err := platform.Absolute(cfg.Remote.Path)
		if err != nil {
			return nil, "", err
		}
		if err := platform.CheckDisjoint(projectDir, path); err != nil {
			return nil, "", err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, "", fmt.Errorf("failed to create remote folder: %w", err)
		}
		backend, err := storage.NewLocal(path)
		if err != nil {
			return nil, "", err
		}
		store := remote.NewFolderStore(backend)
		return store, store.RootID(), nil

	case config.RemoteS3:
		store, err := remote.NewS3Store(ctx, remote.S3Config{
			Bucket:    cfg.Remote.Bucket,
			Prefix:    cfg.Remote.Prefix,
			Region:    cfg.Remote.Region,
			Endpoint:  cfg.Remote.Endpoint,
			PathStyle: cfg.Remote.PathStyle,
		})
		if err != nil {
			return nil, "", err
		}
		return store, store.RootID(), nil

	case config.RemoteDrive:
		tokens, err := driveTokens(ctx, cfg, logger)
		if err != nil {
			return nil, "", err
		}
		store, err := remote.NewDriveStore(ctx, tokens, remote.DriveConfig{
			FolderID: cfg.Remote.FolderID,
			DriveID:  cfg.Remote.DriveID,
		})
		if err != nil {
			return nil, "", err
		}
		return store, store.RootID(), nil
	}
	return nil, "", fmt.Errorf("unsupported remote kind: %s", cfg.Remote.Kind)
}

func driveOAuth(cfg *config.Config) *oauth2.Config {
	return auth.NewDriveConfig(cfg.Remote.ClientID, cfg.Remote.ClientSecret)
}

// driveTokens returns the token source for the stored credential.
// Refreshed tokens are written back to the config file.
func driveTokens(ctx context.Context, cfg *config.Config, logger logging.Logger) (oauth2.TokenSource, error) {
	return auth.NewTokenSource(ctx, driveOAuth(cfg), cfg.Credential(), func(fresh auth.Credential) {
		if err := saveCredential(fresh); err != nil {
			logger.Warn(ctx, "failed to save refreshed token", logging.Fields{"error": err.Error()})
			return
		}
		logger.Debug(ctx, "saved refreshed access token", logging.Fields{"expiry": fresh.Expiry})
	})
}

// saveCredential stores cred in the config file, leaving the rest of the
// file as it was on disk.
func saveCredential(cred auth.Credential) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.SetCredential(cred)
	return config.Save(cfg, path)
}
