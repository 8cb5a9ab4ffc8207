//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/stylenest/api/internal/domain"
	pconfig "github.com/stylenest/api/internal/platform/config"
	pfirestore "github.com/stylenest/api/internal/platform/firestore"
	"github.com/stylenest/api/internal/repositories"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func TestItemMetricsRepositoryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "metrics-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewItemMetricsRepository(provider)
	if err != nil {
		t.Fatalf("new item metrics repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)

	first, err := repo.Increment(ctx, "prod-001", domain.ItemTypeProduct, repositories.ItemMetricsDelta{
		Adds:     1,
		Quantity: 2,
		Now:      now,
	})
	if err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if first.AddCount != 1 || first.QuantityAdded != 2 {
		t.Fatalf("expected counters 1/2 after create, got %d/%d", first.AddCount, first.QuantityAdded)
	}

	// The second increment hits the existing document and must accumulate
	// rather than error or reset.
	second, err := repo.Increment(ctx, "prod-001", domain.ItemTypeProduct, repositories.ItemMetricsDelta{
		Adds:     1,
		Quantity: 3,
		Now:      now.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if second.AddCount != 2 || second.QuantityAdded != 5 {
		t.Fatalf("expected counters 2/5 after update, got %d/%d", second.AddCount, second.QuantityAdded)
	}

	stored, err := repo.Get(ctx, "prod-001", domain.ItemTypeProduct)
	if err != nil {
		t.Fatalf("get after increments: %v", err)
	}
	if stored.AddCount != 2 || stored.QuantityAdded != 5 {
		t.Fatalf("expected persisted counters 2/5, got %d/%d", stored.AddCount, stored.QuantityAdded)
	}
	if stored.ItemID != "prod-001" || stored.ItemType != domain.ItemTypeProduct {
		t.Fatalf("unexpected item identity: %s/%s", stored.ItemID, stored.ItemType)
	}

	// Same item id under a different type keeps its own document.
	if _, err := repo.Increment(ctx, "prod-001", domain.ItemTypeNewArrival, repositories.ItemMetricsDelta{
		Adds:     1,
		Quantity: 1,
		Now:      now,
	}); err != nil {
		t.Fatalf("increment other type: %v", err)
	}
	stored, err = repo.Get(ctx, "prod-001", domain.ItemTypeProduct)
	if err != nil {
		t.Fatalf("get after other type increment: %v", err)
	}
	if stored.AddCount != 2 {
		t.Fatalf("expected product counters untouched, got add count %d", stored.AddCount)
	}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			if _, err := repo.Increment(ctx, "prod-002", domain.ItemTypeProduct, repositories.ItemMetricsDelta{
				Adds:     1,
				Quantity: 1,
				Now:      now,
			}); err != nil {
				t.Errorf("concurrent increment %d: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	stored, err = repo.Get(ctx, "prod-002", domain.ItemTypeProduct)
	if err != nil {
		t.Fatalf("get after concurrent increments: %v", err)
	}
	if stored.AddCount != workers || stored.QuantityAdded != workers {
		t.Fatalf("expected %d/%d after concurrent increments, got %d/%d", workers, workers, stored.AddCount, stored.QuantityAdded)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	// Shorten the ID to match docker CLI behaviour for stop/remove commands.
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for endpoint")
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
}
