package experiment

import (
	"context"
	"fmt"
	"os/exec"
)

// DropCaches asks the kernel to drop its page, dentry and inode caches. It requires sudo.
func DropCaches(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "sh", "-c", "echo 3 | sudo tee /proc/sys/vm/drop_caches").CombinedOutput()
	if err != nil {
		return fmt.Errorf("drop caches: %w: %s", err, out)
	}
	return nil
}
