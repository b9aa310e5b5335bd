// Package configsvc provides a service for watching configuration files and notifying clients of changes.
package configsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/ghodss/yaml"
	"go.uber.org/zap"
)

type subscriber func(event fsnotify.Event)

type Service struct {
	log *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	subscribers []subscriber
	ready       chan struct{}
}

func New(log *zap.Logger) *Service {
	return &Service{
		log:   log,
		ready: make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	close(s.ready)
	s.log.Info("Config service started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.mu.Lock()
			subscribers := s.subscribers
			s.mu.Unlock()
			for _, sub := range subscribers {
				sub(event)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Register watches a configuration file and calls fn with the new configuration every time it is written.
// It returns the current configuration and an error if the file cannot be read.
// The service must be ready. Service instance is used as a parameter instead of the method receiver
// to enable generic types.
func Register[T any](s *Service, path string, def T, fn func(config T, err error)) (T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return def, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	config, err := readConfig(absPath, def)
	if err != nil {
		return def, fmt.Errorf("failed to read config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return def, errors.New("config service is not started")
	}
	err = s.watcher.Add(filepath.Dir(absPath))
	if err != nil {
		return def, fmt.Errorf("failed to add path to watcher %s: %w", path, err)
	}
	s.subscribers = append(s.subscribers, func(event fsnotify.Event) {
		if event.Name == absPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
			newConfig, err := readConfig(absPath, def)
			fn(newConfig, err)
		}
	})
	return config, nil
}

func Load[T any](path string, def T) (T, error) {
	config, err := readConfig(path, def)
	if err != nil {
		return def, fmt.Errorf("failed to read config: %w", err)
	}
	return config, nil
}

// LoadOrInit reads the configuration file, creating it with the default configuration when missing.
func LoadOrInit[T any](path string, def T) (T, error) {
	config, err := readConfig(path, def)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = writeConfig(path, def)
		if err != nil {
			return def, fmt.Errorf("failed to initialize config: %w", err)
		}
		return def, nil
	case err != nil:
		return def, fmt.Errorf("failed to read config: %w", err)
	}
	return config, nil
}

func writeConfig[T any](path string, config T) error {
	jsonB, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	yamlB, err := yaml.JSONToYAML(jsonB)
	if err != nil {
		return fmt.Errorf("failed to convert json to yaml: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	err = os.WriteFile(path, yamlB, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func readConfig[T any](path string, def T) (T, error) {
	yamlB, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read config file: %w", err)
	}

	jsonB, err := yaml.YAMLToJSON(yamlB)
	if err != nil {
		return def, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	err = json.Unmarshal(jsonB, &def)
	if err != nil {
		return def, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return def, nil
}
