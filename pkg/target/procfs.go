package target

import (
	"fmt"
	"io/ioutil"
	"strings"
)

// atEntry is the aux vector tag of the program entry point.
const atEntry = 9

// readProcCommArgs read /proc/pid/cmdline to load the command arguments of process
func readProcCommArgs(pid int) ([]string, error) {
	dat, err := ioutil.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return nil, err
	}
	dat = []byte(strings.TrimSuffix(string(dat), "\x00"))
	if len(dat) == 0 {
		return nil, nil
	}
	args := strings.Split(string(dat), string([]byte{0}))[1:]
	return args, nil
}

// readAuxEntry read /proc/pid/auxv to load the entry address of process
func readAuxEntry(pid int) (uint64, error) {
	dat, err := ioutil.ReadFile(fmt.Sprintf("/proc/%d/auxv", pid))
	if err != nil {
		return 0, err
	}
	entry, ok := parseAuxv(dat, atEntry)
	if !ok {
		return 0, fmt.Errorf("no AT_ENTRY in /proc/%d/auxv", pid)
	}
	return entry, nil
}

// parseAuxv returns the value of tag in a raw aux vector, pairs of words.
func parseAuxv(dat []byte, tag uint64) (uint64, bool) {
	for i := 0; i+2*WordSize <= len(dat); i += 2 * WordSize {
		k := getWord(dat[i:])
		if k == 0 {
			break
		}
		if k == tag {
			return getWord(dat[i+WordSize:]), true
		}
	}
	return 0, false
}
