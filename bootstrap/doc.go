// Package bootstrap wires configuration, storage, side effects and the HTTP
// API into a running agora server.
//
// The server entry point loads everything from config.yaml and AGORA_*
// variables:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := app.Start(ctx); err != nil {
//	    app.Shutdown()
//	    return err
//	}
//	app.WaitForShutdown()
//	app.Shutdown()
//
// One-shot CLI commands call NewAppWithConfig and use App.Services directly
// without starting the HTTP server.
package bootstrap
