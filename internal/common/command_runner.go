package common

import (
	"context"
	"fmt"

	"skillpick/internal/config"
	"skillpick/internal/errors"
	"skillpick/internal/store"
)

// CreateInputFunc defines how to build the operation input from the files read.
type CreateInputFunc[Input any] func(files []InputFile) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is a generic oracle-backed operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// StoreQueryFunc reads a result from the candidate store.
type StoreQueryFunc[Output any] func(context.Context, store.Store) (Output, error)

// RunFileCommand encapsulates the common logic of file-based CLI commands:
// read the inputs, run the operation, format the result.
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	files, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	input, err := createInput(files)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	logDetails(input, cmdConfig)

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}

// RunStoreCommand opens the configured store, runs query and formats the
// result. The in-memory store holds nothing between runs, so it is refused.
func RunStoreCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	dbConfig config.DatabaseConfig,
	cmdConfig CommandConfig,
	query StoreQueryFunc[Output],
) error {
	s, err := OpenPersistentStore(dbConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	result, err := query(ctx, s)
	if err != nil {
		return err
	}

	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}

// OpenPersistentStore opens the configured database, rejecting the memory driver
func OpenPersistentStore(dbConfig config.DatabaseConfig, logger *errors.Logger) (store.Store, error) {
	if dbConfig.Driver == "" || dbConfig.Driver == "memory" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"This command needs a persistent database; set database.driver to sqlite, postgres or mysql", nil)
	}
	return store.Open(dbConfig, logger)
}
