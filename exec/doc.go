// Package exec runs the external tools the filesystem core delegates to:
// mount, umount, shred and the sudo variants of chmod, chown and rm.
//
// Command wraps os/exec behind the Executor interface so callers can swap in
// a recording fake (see package exectest) when testing code paths that would
// otherwise need root.
//
// # Basic Usage
//
//	x := exec.New(exec.WithTimeout(5 * time.Minute))
//	res, err := x.Run("mount", "--bind", "/srv/a", "/srv/b")
//	if err != nil {
//		var ee *exec.ExecError
//		if errors.As(err, &ee) {
//			fmt.Println(ee.ExitCode, ee.Stderr)
//		}
//	}
//
// # Configuration
//
// Options passed to New are defaults. The With* methods return a derived
// executor and never modify the receiver, so a base executor can be shared:
//
//	base := exec.New(exec.WithEnv(map[string]string{"LC_ALL": "C"}))
//	res, err := base.WithDir("/srv").WithTimeout(time.Second).Run("ls")
//
// # Prefixes
//
// NewWrapper prepends fixed arguments to every Run call. The filesystem core
// uses it to elevate a tool invocation:
//
//	sudo := exec.NewWrapper(base, "sudo", "-n")
//	_, err := sudo.Run("chown", "-R", "www-data:www-data", "/srv/uploads")
//	// runs: sudo -n chown -R www-data:www-data /srv/uploads
package exec
