package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/logic"
	"github.com/antonio-alexander/go-employee-facade/internal/service"
	"github.com/antonio-alexander/go-employee-facade/internal/upstream"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

func main() {
	pwd, _ := os.Getwd()
	args := os.Args[1:]
	envs := internal.Envs(os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(pwd, args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func createCache(envs map[string]string, parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	cache.Cache
} {
	switch envs["CACHE_TYPE"] {
	default:
		return nil
	case "memory":
		return cache.NewMemory(parameters...)
	case "redis":
		return cache.NewRedis(parameters...)
	case "stash-memory":
		stash := memory.New()
		_ = stash.Configure(envs)
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	case "stash-redis":
		stash := redis.New()
		_ = stash.Configure(envs)
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	}
}

func Main(pwd string, args []string, envs map[string]string, osSignal chan os.Signal) error {
	var wg sync.WaitGroup

	//merge the env file, if any
	if err := internal.LoadEnvFile(envs); err != nil {
		return err
	}

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create utilities
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)
	timers := utilities.NewTimers()
	counter := utilities.NewCounter()

	//print version info
	logger.Info(ctx, "server: go-employee-facade v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	//create upstream, configure and open
	upstream := upstream.NewUpstream(logger)
	if err := upstream.Configure(envs); err != nil {
		return err
	}
	if err := upstream.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := upstream.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing upstream: %s", err)
		}
	}()

	// create cache
	parameters := []any{upstream}
	cache := createCache(envs, logger)
	if cache != nil {
		if err := cache.Configure(envs); err != nil {
			return err
		}
		if err := cache.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(context.Background()); err != nil {
				logger.Error(context.Background(), "error while closing cache: %s", err)
			}
		}()
		parameters = append(parameters, cache)
	}

	//create logic, configure and open
	logic := logic.NewLogic(append(parameters, logger, counter)...)
	if err := logic.Configure(envs); err != nil {
		return err
	}
	if err := logic.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := logic.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing logic: %s", err)
		}
	}()

	//create service, configure and open
	parameters = []any{logic, logger, counter, timers}
	if cache != nil {
		parameters = append(parameters, cache)
	}
	service := service.NewService(parameters...)
	if err := service.Configure(envs); err != nil {
		return err
	}
	if err := service.Open(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	wg.Wait()
	if err := service.Close(context.Background()); err != nil {
		logger.Error(context.Background(), "error while closing service: %s", err)
	}
	return nil
}
