package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/cache"
	"github.com/antonio-alexander/go-employee-facade/internal/client"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"

	"github.com/pkg/errors"
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
	args := os.Args[1:]
	envs := internal.Envs(os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
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

func secondsFromEnvs(envs map[string]string, key string, defaultValue time.Duration) time.Duration {
	if s := envs[key]; s != "" {
		if i, err := strconv.Atoi(s); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}

// scenarioConcurrentReads has every client cycle through the read endpoints
// while an optional writer creates and deletes an employee, invalidating
// the server's cache; the server's counters and timers are reported at the end
func scenarioConcurrentReads(ctx context.Context, envs map[string]string, logger utilities.Logger,
	clients ...client.Client) error {
	const correlationId string = "scenario_concurrent_reads"
	const minClients int = 1

	var wg sync.WaitGroup

	readInterval := secondsFromEnvs(envs, "SCENARIO_READ_INTERVAL", time.Second)
	mutateInterval := secondsFromEnvs(envs, "SCENARIO_MUTATE_INTERVAL", 2*time.Second)
	scenarioDuration := secondsFromEnvs(envs, "SCENARIO_DURATION", 10*time.Second)
	mutate, _ := strconv.ParseBool(envs["SCENARIO_MUTATE"])
	if len(clients) < minClients {
		return errors.New("not enough clients provided")
	}

	//generate context
	ctx = internal.CtxWithCorrelationId(ctx, correlationId)

	//find an id to read individually
	employees, err := clients[0].EmployeesList(ctx)
	if err != nil {
		return err
	}
	if len(employees) == 0 {
		return data.ErrEmptyCollection
	}
	id := employees[0].Id

	//generate start/stop channels
	start, stop := make(chan struct{}), make(chan struct{})

	//create writer go routine
	if mutate {
		wg.Add(1)
		go func(ctx context.Context, client client.Client) {
			defer wg.Done()

			ctx = internal.CtxWithCorrelationId(ctx, correlationId+"_writer")
			mutateFx := func(ctx context.Context) error {
				employee, err := client.EmployeeCreate(ctx, &data.EmployeeInput{
					Name:   internal.GenerateId()[:14],
					Salary: 50000,
					Age:    30,
					Title:  "Scenario",
				})
				if err != nil {
					return err
				}
				if _, err := client.EmployeeDelete(ctx, employee.Id); err != nil {
					return err
				}
				return nil
			}
			tMutate := time.NewTicker(mutateInterval)
			defer tMutate.Stop()
			<-start
			for {
				select {
				case <-stop:
					return
				case <-tMutate.C:
					if err := mutateFx(ctx); err != nil {
						logger.Error(ctx, "error while mutating employees: %s", err)
					}
				}
			}
		}(ctx, clients[0])
	}

	//create reader go routines
	for i, c := range clients {
		wg.Add(1)
		go func(ctx context.Context, clientNumber int, client client.Client) {
			defer wg.Done()

			ctx = internal.CtxWithCorrelationId(ctx,
				fmt.Sprintf("%s_%d", correlationId, clientNumber))
			reads := []func(ctx context.Context) error{
				func(ctx context.Context) error {
					_, err := client.EmployeesList(ctx)
					return err
				},
				func(ctx context.Context) error {
					_, err := client.EmployeeRead(ctx, id)
					return err
				},
				func(ctx context.Context) error {
					_, err := client.EmployeesSearch(ctx, "a")
					return err
				},
				func(ctx context.Context) error {
					_, err := client.EmployeesHighestSalary(ctx)
					return err
				},
				func(ctx context.Context) error {
					_, err := client.EmployeesTopEarners(ctx)
					return err
				},
			}
			tRead := time.NewTicker(readInterval)
			defer tRead.Stop()
			<-start
			for n := clientNumber; ; n++ {
				select {
				case <-stop:
					return
				case <-tRead.C:
					if err := reads[n%len(reads)](ctx); err != nil {
						logger.Error(ctx, "error while reading employees: %s", err)
					}
				}
			}
		}(ctx, i, c)
	}

	//clear cache, counters and timers then start the go routines
	if err := clients[0].CacheClear(ctx); err != nil {
		return err
	}
	if err := clients[0].CacheCountersClear(ctx); err != nil {
		return err
	}
	if err := clients[0].TimersClear(ctx); err != nil {
		return err
	}
	close(start)

	//allow go routines to run
	select {
	case <-ctx.Done():
	case <-time.After(scenarioDuration):
	}

	//stop go routines
	close(stop)
	wg.Wait()

	//use initial client to get hit/miss ratios and timers from server
	cacheCounters, err := clients[0].CacheCountersRead(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(cacheCounters.CounterHits))
	for key := range cacheCounters.CounterHits {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		hit, miss := cacheCounters.CounterHits[key], cacheCounters.CounterMisses[key]
		if total := hit + miss; total > 0 {
			logger.Info(ctx, "cache hit miss ratio for %s (%d/%d): %0.2f%%",
				key, hit, total, float64(hit)/float64(total)*100)
		}
	}
	timers, err := clients[0].TimersRead(ctx)
	if err != nil {
		return err
	}
	for group, average := range timers.Averages {
		logger.Info(ctx, "average time for %s: %v", group, time.Duration(average))
	}
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan (os.Signal)) error {
	var clients []client.Client
	var wg sync.WaitGroup

	if err := internal.LoadEnvFile(envs); err != nil {
		return err
	}

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create logger
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)

	//print version info
	logger.Info(ctx, "scenarios: go-employee-facade v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	nClients, _ := strconv.Atoi(envs["N_CLIENTS"])
	if nClients <= 0 {
		nClients = 1
	}
	for range nClients {
		parameters := []any{logger}

		//create cache
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
					logger.Error(ctx, "error while closing cache: %s", err)
				}
			}()
			parameters = append(parameters, cache)
		}

		//create client
		client := client.NewClient(parameters...)
		if err := client.Configure(envs); err != nil {
			return err
		}
		if err := client.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Error(ctx, "error while closing client: %s", err)
			}
		}()
		clients = append(clients, client)
	}

	// execute scenario
	switch scenario := envs["SCENARIO"]; scenario {
	default:
		return errors.Errorf("unsupported scenario: %s", scenario)
	case "concurrent_reads":
		logger.Info(ctx, "executing %s scenario", scenario)
		if err := scenarioConcurrentReads(ctx, envs, logger, clients...); err != nil {
			logger.Error(ctx, "error while executing %s scenario: %s", scenario, err)
		}
	}
	cancel()
	wg.Wait()
	return nil
}
