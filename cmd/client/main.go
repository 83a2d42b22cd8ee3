package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/client"
	"github.com/antonio-alexander/go-employee-facade/internal/data"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

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

func printJson(item any) error {
	bytes, err := json.MarshalIndent(item, "", " ")
	if err != nil {
		return err
	}
	fmt.Println(string(bytes))
	return nil
}

func inputFromEnvs(envs map[string]string) (*data.EmployeeInput, error) {
	fields := map[string]any{
		"name":  envs["EMPLOYEE_NAME"],
		"title": envs["EMPLOYEE_TITLE"],
	}
	for key, env := range map[string]string{
		"salary": "EMPLOYEE_SALARY",
		"age":    "EMPLOYEE_AGE",
	} {
		if s := envs[env]; s != "" {
			i, err := strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(data.ErrInvalidInput, "%s: %s", env, err)
			}
			fields[key] = i
		}
	}
	if email := envs["EMPLOYEE_EMAIL"]; email != "" {
		fields["email"] = email
	}
	return data.NewEmployeeInput(fields)
}

func Main(args []string, envs map[string]string, osSignal chan (os.Signal)) error {
	if err := internal.LoadEnvFile(envs); err != nil {
		return err
	}

	//create logger
	logger := utilities.NewLogger(os.Stderr)
	_ = logger.Configure(envs)

	fmt.Fprintf(os.Stderr, "client: go-employee-facade v%s (%s) built from: %s\n",
		Version, GitCommit, GitBranch)

	//create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-osSignal:
			cancel()
		}
	}()
	ctx = internal.CtxWithCorrelationId(ctx, internal.GenerateId())

	//create client
	client := client.NewClient(logger)
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

	// execute command
	switch command := envs["COMMAND"]; command {
	default:
		return errors.Errorf("unsupported command: %s", command)
	case "employees_list":
		employees, err := client.EmployeesList(ctx)
		if err != nil {
			return err
		}
		return printJson(employees)
	case "employees_search":
		employees, err := client.EmployeesSearch(ctx, envs["SEARCH_STRING"])
		if err != nil {
			return err
		}
		return printJson(employees)
	case "employee_read":
		employee, err := client.EmployeeRead(ctx, envs["EMPLOYEE_ID"])
		if err != nil {
			return err
		}
		return printJson(employee)
	case "highest_salary":
		salary, err := client.EmployeesHighestSalary(ctx)
		if err != nil {
			return err
		}
		return printJson(salary)
	case "top_earners":
		names, err := client.EmployeesTopEarners(ctx)
		if err != nil {
			return err
		}
		return printJson(names)
	case "employee_create":
		input, err := inputFromEnvs(envs)
		if err != nil {
			return err
		}
		employee, err := client.EmployeeCreate(ctx, input)
		if err != nil {
			return err
		}
		return printJson(employee)
	case "employee_delete":
		message, err := client.EmployeeDelete(ctx, envs["EMPLOYEE_ID"])
		if err != nil {
			return err
		}
		fmt.Println(message)
	}
	return nil
}
