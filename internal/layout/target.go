package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:   "aarch64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// TargetByTriple resolves a manifest triple to a known target. The empty
// triple means the default target.
func TargetByTriple(triple string) (Target, bool) {
	switch triple {
	case "", "x86_64-linux-gnu":
		return X86_64LinuxGNU(), true
	case "aarch64-linux-gnu":
		return AArch64LinuxGNU(), true
	}
	return Target{}, false
}
