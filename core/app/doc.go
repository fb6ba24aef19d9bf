// Package app assembles the full event pipeline: an activity store and
// event bus on the write side, the dispatch table and SSE gateway on the
// read side, wired together behind one Config.
//
// # Basic Usage
//
//	cfg, err := app.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	a, err := app.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Shutdown()
//
//	// record activity and emit commands
//	a.Recorder().Record(ctx, activity.Activity{...})
//	a.Producer().AddShare(ctx, user, emailID, target)
//
//	// serve /api/sse/:clientId until ctx is cancelled
//	a.Run()
//
// # Backends
//
// BACKEND=memory keeps the bus and store in-process, with all
// resource-scoped events denied. BACKEND=nats publishes through JetStream
// and resolves permissions and activity writes against MongoDB:
//
//	BACKEND=nats NATS_URL=nats://localhost:4222 \
//	MONGO_URI=mongodb://localhost:27017 ./socialinboxd
package app
