// Package registry maps node types to the handlers that execute them.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/protocol"
)

type entry struct {
	info    protocol.NodeInfo
	handler protocol.NodeHandler
}

type Registry struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	exact    map[string]entry
	prefixes []entry
	fallback protocol.NodeHandler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log,
		exact:    make(map[string]entry),
		fallback: protocol.HandlerFunc(executedNode),
	}
}

// Register binds a handler to info.Type. When info.Prefix is set the handler
// serves every type starting with info.Type that has no exact registration.
func (r *Registry) Register(info protocol.NodeInfo, handler protocol.NodeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry{info: info, handler: handler}

	if !info.Prefix {
		r.exact[info.Type] = e

		return
	}

	for i, existing := range r.prefixes {
		if existing.info.Type == info.Type {
			r.prefixes[i] = e

			return
		}
	}

	r.prefixes = append(r.prefixes, e)
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].info.Type) > len(r.prefixes[j].info.Type)
	})
}

// SetDefault replaces the handler used for unknown node types.
func (r *Registry) SetDefault(handler protocol.NodeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback = handler
}

// Lookup resolves a node type: exact match first, then the longest matching
// prefix. The boolean is false when the default handler applies.
func (r *Registry) Lookup(nodeType string) (protocol.NodeHandler, protocol.NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.exact[nodeType]; ok {
		return e.handler, e.info, true
	}

	for _, e := range r.prefixes {
		if strings.HasPrefix(nodeType, e.info.Type) {
			return e.handler, e.info, true
		}
	}

	return r.fallback, protocol.NodeInfo{Type: nodeType}, false
}

// Execute runs the handler for req.NodeType. A panicking handler is reported
// as an error.
func (r *Registry) Execute(ctx context.Context, req protocol.Request) (output models.NodeOutput, err error) {
	handler, _, _ := r.Lookup(req.NodeType)

	if req.Logger == nil {
		req.Logger = r.logger
	}

	if req.Config == nil {
		req.Config = map[string]any{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "node handler panicked",
				"node_id", req.NodeID,
				"node_type", req.NodeType,
				"panic", rec,
			)

			output = nil
			err = fmt.Errorf("node %s (%s) panicked: %v", req.NodeID, req.NodeType, rec)
		}
	}()

	output, err = handler.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("node %s (%s): %w", req.NodeID, req.NodeType, err)
	}

	if output == nil {
		output = models.NodeOutput{}
	}

	return output, nil
}

// Types lists every registration sorted by type.
func (r *Registry) Types() []protocol.NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]protocol.NodeInfo, 0, len(r.exact)+len(r.prefixes))
	for _, e := range r.exact {
		infos = append(infos, e.info)
	}

	for _, e := range r.prefixes {
		infos = append(infos, e.info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Type < infos[j].Type
	})

	return infos
}

// HealthCheck reports whether any node type is registered.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.exact)+len(r.prefixes) == 0 {
		return "Registry has no node types", false
	}

	return "Registry is healthy", true
}

// LoadPlugins opens every .so file below pluginsPath/nodes and registers the
// protocol.Plugin exported under the symbol "Node".
func (r *Registry) LoadPlugins(pluginsPath string) (int, error) {
	rootPath := filepath.Join(pluginsPath, "nodes")

	l := r.logger.With(slog.String("path", rootPath))
	l.Info("Loading node plugins")

	var paths []string

	err := fs.WalkDir(os.DirFS(rootPath), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, ".so") {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan plugins in %s: %w", rootPath, err)
	}

	for _, p := range paths {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return 0, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		symbol, err := plg.Lookup("Node")
		if err != nil {
			return 0, fmt.Errorf("plugin %s does not export Node: %w", p, err)
		}

		node, ok := symbol.(protocol.Plugin)
		if !ok {
			return 0, fmt.Errorf("plugin %s: Node does not implement protocol.Plugin", p)
		}

		r.Register(node.Info(), node)
		l.Info("Loaded node plugin", slog.String("plugin", p), slog.String("type", node.Info().Type))
	}

	return len(paths), nil
}

func executedNode(_ context.Context, req protocol.Request) (models.NodeOutput, error) {
	return models.NodeOutput{
		"executed":  true,
		"node_type": req.NodeType,
	}, nil
}
