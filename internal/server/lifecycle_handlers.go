package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/cache"
	"github.com/veschin/d2-web-extension-sub000/internal/config"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
	"github.com/veschin/d2-web-extension-sub000/internal/scanner"
	"github.com/veschin/d2-web-extension-sub000/internal/scheduler"
)

const taskQueueSize = 64

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	// Root
	switch {
	case params.RootURI != nil:
		root, err := uriToPath(*params.RootURI)
		if err != nil {
			return nil, err
		}
		s.root = root
	case params.RootPath != nil:
		s.root = *params.RootPath
	default:
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		s.root = wd
	}

	// Config
	cfg, err := config.Resolve(s.root, params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	s.config = cfg
	log.Infof("config: %+v", cfg)

	// Grammar backend, text strategy when unavailable
	s.loader = grammar.NewLoader(func() (grammar.Backend, error) {
		return grammar.New(cfg.Backend, s.lang, cfg.SitterKinds)
	})
	if _, err := s.loader.Backend(); err != nil {
		log.Warningf("grammar backend %q unavailable, using text strategy: %v", cfg.Backend, err)
	}

	// Cache
	cacheFile, err := cfg.CacheFile(s.root)
	if err != nil {
		return nil, err
	}
	s.store, err = cache.Open(cacheFile, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	s.indexer = index.New(s.store, s.loader.Get(), cfg.Extensions)

	s.tasks = scheduler.NewScheduler(taskQueueSize)
	s.tasks.RunScheduler()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: commandNames(),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")

	interval, err := s.config.Interval()
	if err != nil {
		return err
	}
	s.tasks.SchedulePeriodicTask(interval, scheduler.Task{
		Name:    "reindex",
		Execute: s.reindex,
	})

	if s.config.Watch {
		go func() {
			if err := scanner.Watch(s.ctx, s.root, s.config.Extensions, s.fileEvent); err != nil && s.ctx.Err() == nil {
				log.Errorf("watcher stopped: %v", err)
			}
		}()
	}

	if s.config.FeedAddr != "" {
		if _, err := s.startFeed(); err != nil {
			log.Errorf("%v", err)
		}
	}
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	var errs []error
	s.stopOnce.Do(func() {
		s.cancel()
		if s.tasks != nil {
			s.tasks.StopScheduler()
		}
		s.manager.CloseAll()
		if err := s.hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("feed: %w", err))
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("cache: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// reindex brings the index up to date with the workspace on disk.
func (s *Server) reindex() error {
	start := time.Now()
	stats, err := s.indexer.IndexRoot(s.ctx, s.root)
	if err != nil {
		return err
	}
	log.Debugf("reindex took %s (%+v)", time.Since(start), stats)
	return nil
}

// fileEvent reindexes or drops a file the watcher reported.
func (s *Server) fileEvent(ev scanner.Event) {
	task := scheduler.Task{Name: "index " + ev.Path}
	switch ev.Op {
	case scanner.Removed:
		task.Execute = func() error { return s.indexer.Remove(ev.Path) }
	default:
		task.Execute = func() error { return s.indexPath(ev.Path) }
	}
	if !s.tasks.ScheduleHighPriorityTask(task) {
		log.Debugf("dropped %s: scheduler stopped", task.Name)
	}
}

// indexPath indexes the file at path as it is on disk.
func (s *Server) indexPath(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return s.indexer.Remove(path)
	}
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = s.indexer.IndexFile(path, string(content), info.ModTime().UnixNano())
	return err
}
