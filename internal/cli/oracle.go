package cli

import (
	"time"

	"skillpick/internal/ai"
	"skillpick/internal/config"
	"skillpick/internal/errors"
)

// promptReloadDebounce groups editor save bursts into one template reload
const promptReloadDebounce = 500 * time.Millisecond

// newOracle builds the oracle service and, when enabled, a watcher that
// reloads prompt override files. The returned func releases both.
func newOracle(cfg *config.Config, observer ai.Observer, logger *errors.Logger) (*ai.Service, func(), error) {
	prompts, err := ai.NewPromptStore(cfg.PromptFilePaths(), logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := ai.NewService(cfg, prompts, observer, logger)
	if err != nil {
		return nil, nil, err
	}

	var watcher *ai.PromptWatcher
	if cfg.AI.WatchPrompts && len(prompts.Files()) > 0 {
		watcher = ai.NewPromptWatcher(prompts, promptReloadDebounce, logger)
		if err := watcher.Start(); err != nil {
			logger.Warn("Prompt hot reload disabled", "error", err)
			watcher = nil
		}
	}

	release := func() {
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop prompt watcher")
			}
		}
		if err := svc.Close(); err != nil {
			logger.LogError(err, "Failed to close oracle service")
		}
	}
	return svc, release, nil
}
