package server

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
	"github.com/veschin/d2-web-extension-sub000/internal/scheduler"
)

const (
	CommandBlocks  = "d2frag.blocks"
	CommandAnalyze = "d2frag.analyze"
	CommandReindex = "d2frag.reindex"
	CommandFeed    = "d2frag.feed"
)

const defaultFeedAddr = "127.0.0.1:0"

var errStopped = errors.New("server is shutting down")

func commandNames() []string {
	names := []string{CommandBlocks, CommandAnalyze, CommandReindex, CommandFeed}
	sort.Strings(names)
	return names
}

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	log.Debugf("called %q", params.Command)
	switch params.Command {
	case CommandBlocks:
		uri, err := stringArg(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		text, err := s.documentText(uri)
		if err != nil {
			return nil, err
		}
		return s.describe(text), nil

	case CommandAnalyze:
		code, err := stringArg(params.Arguments, 0)
		if err != nil {
			return nil, err
		}
		return analyzer.Analyze(code, s.loader.Get()), nil

	case CommandReindex:
		return s.reindexNow()

	case CommandFeed:
		return s.feed(context)
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

// reindexNow runs a reindex on the scheduler and waits for its result.
func (s *Server) reindexNow() (index.Stats, error) {
	if s.tasks == nil {
		return index.Stats{}, errStopped
	}
	type result struct {
		stats index.Stats
		err   error
	}
	done := make(chan result, 1)
	ok := s.tasks.ScheduleHighPriorityTask(scheduler.Task{
		Name: "reindex",
		Execute: func() error {
			stats, err := s.indexer.IndexRoot(s.ctx, s.root)
			done <- result{stats, err}
			return err
		},
	})
	if !ok {
		return index.Stats{}, errStopped
	}
	r := <-done
	return r.stats, r.err
}

// feed starts the fragment feed if needed and asks the client to open it.
func (s *Server) feed(context *glsp.Context) (string, error) {
	url, err := s.startFeed()
	if err != nil {
		return "", err
	}
	context.Notify(
		protocol.ServerWindowShowDocument,
		protocol.ShowDocumentParams{
			URI:      url,
			External: &protocol.True,
		},
	)
	return url, nil
}

// startFeed serves the feed and publishes every open document to it.
func (s *Server) startFeed() (string, error) {
	if url := s.hub.URL(); url != "" {
		return url, nil
	}
	addr := s.config.FeedAddr
	if addr == "" {
		addr = defaultFeedAddr
	}
	url, err := s.hub.Start(addr)
	if err != nil {
		return "", err
	}
	for _, uri := range s.manager.URIs() {
		text, err := s.manager.Get(uri)
		if err != nil {
			continue
		}
		if err := s.hub.Publish(uri, s.describe(text)); err != nil {
			log.Warningf("feed: %v", err)
		}
	}
	return url, nil
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d: expected a string, got %T", i, args[i])
	}
	return s, nil
}
