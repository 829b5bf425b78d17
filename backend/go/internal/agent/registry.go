package agent

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed profiles/*.json
var builtinProfiles embed.FS

// ProfileFiles 是注册表加载的档案文件列表，顺序固定。
var ProfileFiles = []string{
	"business-analyst.json",
	"copywriter.json",
	"project-assistant.json",
}

// Registry 在内存中保存所有数字员工档案。
// 档案加载后不可变，读写锁只用于支持 Reload。
type Registry struct {
	dir    string
	files  []string
	logger *logger.Logger
	now    func() time.Time

	agents map[string]*models.Agent
	mutex  sync.RWMutex
}

// NewRegistry 创建一个注册表。dir 为空时使用编译进二进制的内置档案。
// 创建后需要调用 Load 才会有数据。
func NewRegistry(dir string, log *logger.Logger) *Registry {
	return &Registry{
		dir:    dir,
		files:  ProfileFiles,
		logger: log,
		now:    time.Now,
		agents: make(map[string]*models.Agent),
	}
}

// Load 读取所有档案文件并替换当前内容，返回成功加载的数量。
// 读取、解析或校验失败的文件会记录日志后跳过，不影响其他档案。
func (r *Registry) Load() int {
	loaded := make(map[string]*models.Agent, len(r.files))
	for _, file := range r.files {
		agent, err := r.loadFile(file)
		if err != nil {
			r.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				WithField("file", file).
				Error("Failed to load agent profile")
			continue
		}
		loaded[agent.ID] = agent
		r.logger.WithPayload(map[string]interface{}{"agent_id": agent.ID, "name": agent.Name}).
			Info("Loaded agent profile")
	}

	r.mutex.Lock()
	r.agents = loaded
	r.mutex.Unlock()
	return len(loaded)
}

// Reload 清空并重新加载所有档案。
func (r *Registry) Reload() int {
	return r.Load()
}

func (r *Registry) loadFile(name string) (*models.Agent, error) {
	var (
		data []byte
		err  error
	)
	if r.dir == "" {
		data, err = builtinProfiles.ReadFile("profiles/" + name)
	} else {
		data, err = os.ReadFile(filepath.Join(r.dir, name))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var agent models.Agent
	if err := json.Unmarshal(data, &agent); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := agent.Check(); err != nil {
		return nil, err
	}
	agent.CreatedAt = r.now()
	return &agent, nil
}

// GetAgentByID 根据 ID 返回档案。
func (r *Registry) GetAgentByID(id string) (*models.Agent, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	agent, found := r.agents[id]
	return agent, found
}

// GetAllAgents 返回所有档案，按 ID 排序。
func (r *Registry) GetAllAgents() []*models.Agent {
	r.mutex.RLock()
	agents := make([]*models.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	r.mutex.RUnlock()

	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// AgentExists 判断档案是否存在。
func (r *Registry) AgentExists(id string) bool {
	_, found := r.GetAgentByID(id)
	return found
}

// Watch 监听档案目录，档案文件被写入或创建时自动重新加载，直到 ctx 结束。
// 使用内置档案时没有可监听的目录，直接返回错误。
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		return fmt.Errorf("agent registry uses built-in profiles, nothing to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !r.isProfileFile(event.Name) {
					continue
				}
				count := r.Reload()
				r.logger.WithPayload(map[string]interface{}{"file": filepath.Base(event.Name), "agents": count}).
					Info("Agent profiles reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Agent profile watcher error")
			}
		}
	}()
	return nil
}

func (r *Registry) isProfileFile(path string) bool {
	base := filepath.Base(path)
	for _, f := range r.files {
		if f == base {
			return true
		}
	}
	return false
}
