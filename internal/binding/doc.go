/*
Package binding exposes host capabilities and host objects to scripts.

# Registry

A Registry is an immutable, option-built set of named capabilities. Each
capability produces one script global when the registry is installed into
a goja runtime:

	reg, err := binding.NewRegistry(
	    binding.WithMiddleware(binding.Recover(logger)),
	    binding.WithCapability(jscrypto.Capabilities(factory)...),
	)
	if err != nil {
	    return err
	}
	err = reg.Install(rt)

Every native function built through an Installer is wrapped by the
registry's middleware, so metrics and panic recovery apply uniformly to
globals, factory results and bound objects.

# Bound objects

A Bridge binds arbitrary Go values. Script code sees an object whose
properties are the value's methods with a lowercased first letter
(DoLog becomes doLog). A value implementing ScriptExported exposes only
the methods it lists. Method results that carry identity (pointers and
structs with methods) are bound in turn and receive a fresh ObjectID, so
a script can walk from one host object to another:

	var home = myobject.getMyHome();
	home.printRect(0, 0, 512, 512);

Arity is checked before the call; a wrong argument count or an argument
that cannot be converted throws a TypeError. A non-nil trailing error
result is thrown as a GoError.
*/
package binding
