/*
Package engine hosts JavaScript runtimes.

A Host owns one goja runtime and a goroutine that executes every operation
on it in submission order: injecting objects, running scripts, resetting.
Run waits for the script and returns a Result holding the completion value
and the adb entries it produced; Post queues a script and returns at once.
Scripts are interrupted after Config.Timeout or when the caller's context is
done.

	h, err := engine.New(engine.DefaultConfig(), logger,
	    engine.WithCapabilities(jscrypto.NewFactory(jscrypto.DefaultScheme, logger).Capabilities()...),
	    engine.WithSink(hub),
	)
	if err != nil {
	    return err
	}
	defer h.Shutdown()

	_ = h.Inject("myobject", demo.NewMyObject(logger, surface))
	res, err := h.Run(ctx, "main.js", source)

A Pool keeps several hosts built by the same Factory and resets each one
when it is released.
*/
package engine
