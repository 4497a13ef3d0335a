// Package errwatch reports application errors to a remote ingestion service
// without disrupting the host program.
//
// errwatch captures errors and messages, enriches them with ambient context
// carried by a Scope in context.Context, filters sensitive or unwanted data,
// and hands them to a background Worker that delivers them through a Sender.
//
// # Core Components
//
//   - Client: the facade. Notify queues a notice; NotifySync sends inline
//   - Builder: turns errors, messages, and records into a Notice
//   - Sanitizer: redacts filtered keys and bounds depth and string size
//   - Ignorer: drops errors by class, ancestor class, or class pattern
//   - Worker: bounded queue with adaptive throttle and drain on shutdown
//   - Sender: transport (httpsender, cxdb, multi, stderr, capture, noop)
//
// # Quick Start
//
//	cfg, err := envcfg.Load()
//	if err != nil {
//	    return err
//	}
//	client, err := errwatch.New(cfg,
//	    errwatch.WithSender(httpsender.New(cfg.Endpoint, cfg.APIKey)),
//	    errwatch.WithBeforeSend(errwatch.ScrubMessages(), errwatch.FingerprintByStack()),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Shutdown()
//
//	ctx, scope := errwatch.EnsureScope(ctx)
//	scope.SetUser(map[string]any{"id": 42})
//	client.Notify(ctx, errwatch.WithBacktrace(err), errwatch.Tags("billing"))
//
// # Classification
//
// Go errors carry no class hierarchy, so errors describe themselves through
// Classified. Errors that do not are classified by their dynamic type name
// with "error" as the only ancestor.
//
// # Design Principles
//
//   - Notify never blocks and never panics into the caller
//   - Callback panics are logged and do not reject the notice; only false does
//   - The queue is bounded; a full queue drops the newest notice
package errwatch
