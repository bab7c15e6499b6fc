package main

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	exiftoolOnce      sync.Once
	exiftoolAvailable bool
	useDockerExiftool bool
)

// ReadTimestampWithExiftool asks exiftool for DateTimeOriginal. It reports
// false when exiftool is missing or the tag is not set.
func ReadTimestampWithExiftool(filePath string) (time.Time, bool) {
	if !checkExiftoolAvailable() {
		return time.Time{}, false
	}

	out, err := exiftoolCommand(filePath, "-s3", "-DateTimeOriginal").Output()
	if err != nil {
		Debugf("exiftool failed for %s: %v", filePath, err)
		return time.Time{}, false
	}

	value := strings.TrimSpace(string(out))
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{"2006:01:02 15:04:05", "2006:01:02 15:04:05-07:00", "2006:01:02 15:04:05Z07:00"} {
		if tm, err := time.Parse(layout, value); err == nil {
			return tm, true
		}
	}
	Debugf("exiftool returned unparseable DateTimeOriginal %q for %s", value, filePath)
	return time.Time{}, false
}

// exiftoolCommand builds an exiftool invocation, native or through Docker.
func exiftoolCommand(filePath string, args ...string) *exec.Cmd {
	if !useDockerExiftool {
		return exec.Command("exiftool", append(args, filePath)...)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}
	dockerArgs := []string{"run", "--rm",
		"-v", fmt.Sprintf("%s:/work:ro", filepath.Dir(absPath)),
		"exiftool/exiftool",
	}
	dockerArgs = append(dockerArgs, args...)
	dockerArgs = append(dockerArgs, "/work/"+filepath.Base(absPath))
	return exec.Command("docker", dockerArgs...)
}

// checkExiftoolAvailable checks once whether exiftool is installed natively
// or as a local Docker image. It never pulls images.
func checkExiftoolAvailable() bool {
	exiftoolOnce.Do(func() {
		if _, err := exec.LookPath("exiftool"); err == nil {
			exiftoolAvailable = true
			return
		}

		if _, err := exec.LookPath("docker"); err == nil {
			cmd := exec.Command("docker", "image", "inspect", "exiftool/exiftool")
			if cmd.Run() == nil {
				useDockerExiftool = true
				exiftoolAvailable = true
			}
		}
	})
	return exiftoolAvailable
}
