package bridge

import (
	"os"

	"github.com/temoto/fplug/log2"
	"golang.org/x/sys/unix"
)

// reap collects an exited child right away, otherwise leaves a goroutine
// waiting for it so it never turns zombie.
func reap(proc *os.Process, log *log2.Log) {
	var ws unix.WaitStatus
	pid, err := unix.Wait4(proc.Pid, &ws, unix.WNOHANG, nil)
	switch {
	case err != nil:
		log.Debugf("bridge pid=%d wait4 err=%v", proc.Pid, err)
		_ = proc.Release()
	case pid == proc.Pid:
		log.Debugf("bridge pid=%d exited status=%d", pid, ws.ExitStatus())
		_ = proc.Release()
	default:
		log.Debugf("bridge pid=%d still running, wait in background", proc.Pid)
		go func() {
			state, err := proc.Wait()
			if err != nil {
				log.Debugf("bridge pid=%d wait err=%v", proc.Pid, err)
				return
			}
			log.Debugf("bridge pid=%d %s", proc.Pid, state.String())
		}()
	}
}
