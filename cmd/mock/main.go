package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/mock"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"
)

var seedNames = []string{
	"Lloyd Graham", "Tiger Nixon", "Garrett Winters", "Ashton Cox",
	"Cedric Kelly", "Airi Satou", "Brielle Williamson", "Herrod Chandler",
	"Rhona Davidson", "Colleen Hurst", "Sonya Frost", "Jena Gaines",
}

func main() {
	envs := internal.Envs(os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

// Main serves an in-memory employee upstream so the facade can be run
// without the real one
func Main(envs map[string]string, osSignal chan os.Signal) error {
	if err := internal.LoadEnvFile(envs); err != nil {
		return err
	}
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)
	ctx := context.Background()

	nEmployees := len(seedNames)
	if s := envs["MOCK_EMPLOYEES"]; s != "" {
		if i, err := strconv.Atoi(s); err == nil && i >= 0 {
			nEmployees = i
		}
	}
	employees := make([]*data.Employee, 0, nEmployees)
	for i := 0; i < nEmployees; i++ {
		name := seedNames[i%len(seedNames)]
		if i >= len(seedNames) {
			name = fmt.Sprintf("%s %d", name, i/len(seedNames))
		}
		employees = append(employees, &data.Employee{
			Id:     internal.GenerateId(),
			Name:   name,
			Salary: 50000 + (i*7919)%250000,
			Age:    18 + (i*13)%57,
			Title:  "Employee",
		})
	}
	port := envs["MOCK_PORT"]
	if port == "" {
		port = "8112"
	}
	server := &http.Server{
		Addr:    net.JoinHostPort(envs["MOCK_ADDRESS"], port),
		Handler: mock.New(envs["UPSTREAM_PATH"], employees...),
	}
	chErr := make(chan error, 1)
	go func() {
		defer close(chErr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chErr <- err
		}
	}()
	logger.Info(ctx, "mock upstream serving %d employees on %s", nEmployees, server.Addr)
	select {
	case err := <-chErr:
		return err
	case <-osSignal:
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
