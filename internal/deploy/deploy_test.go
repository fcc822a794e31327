package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dexops/internal/casper"
	"dexops/internal/manifest"
	"dexops/internal/rpc"
)

func contractID(b byte) casper.Identifier {
	var hash [32]byte
	for i := range hash {
		hash[i] = b
	}
	return casper.Identifier{Tag: casper.TagContract, Hash: hash}
}

func accountID(b byte) casper.Identifier {
	var hash [32]byte
	for i := range hash {
		hash[i] = b
	}
	return casper.Identifier{Tag: casper.TagAccount, Hash: hash}
}

// fakeNode is an in-memory node: submitting an install deploy lands the
// contract's named key into the account, the way a real installer does.
type fakeNode struct {
	root      string
	namedKeys map[string]casper.Identifier
	packages  map[string]rpc.ContractPackage

	// keyed by deploy payload; applied to namedKeys on Submit
	installs map[string]installEffect

	submits   []string
	submitErr error
}

type installEffect struct {
	namedKey string
	pkg      casper.Identifier
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		root:      "root-1",
		namedKeys: make(map[string]casper.Identifier),
		packages:  make(map[string]rpc.ContractPackage),
		installs:  make(map[string]installEffect),
	}
}

func (f *fakeNode) StateRootHash(ctx context.Context) (string, error) {
	return f.root, nil
}

func (f *fakeNode) AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error) {
	keys := make(map[string]casper.Identifier, len(f.namedKeys))
	for k, v := range f.namedKeys {
		keys[k] = v
	}
	return keys, nil
}

func (f *fakeNode) ContractPackage(ctx context.Context, stateRoot string, pkg casper.Identifier) (rpc.ContractPackage, error) {
	cp, ok := f.packages[pkg.HexHash()]
	if !ok {
		return rpc.ContractPackage{}, rpc.ErrNotFound
	}
	return cp, nil
}

func (f *fakeNode) Submit(ctx context.Context, deploy json.RawMessage) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submits = append(f.submits, string(deploy))
	if effect, ok := f.installs[string(deploy)]; ok {
		f.namedKeys[effect.namedKey] = effect.pkg
	}
	return "hash-of-" + string(deploy), nil
}

func (f *fakeNode) DeployStatus(ctx context.Context, deployHash string) (rpc.DeployStatus, error) {
	return rpc.DeployStatus{State: rpc.DeploySucceeded}, nil
}

func testConfig() Config {
	return Config{
		Account:         accountID(0xaa),
		NodeURL:         "http://localhost:7777/rpc",
		MaxPollAttempts: 3,
		PollInterval:    time.Millisecond,
	}
}

func wcsprSpec(node *fakeNode) ContractSpec {
	pkg := contractID(0x01)
	node.packages[pkg.HexHash()] = rpc.ContractPackage{
		Versions: []rpc.ContractVersion{
			{ContractHash: contractID(0x02), Version: 1},
		},
	}
	node.installs["install-wcspr"] = installEffect{namedKey: "wcspr", pkg: pkg}
	return ContractSpec{
		Name:    "wcspr",
		Install: json.RawMessage("install-wcspr"),
	}
}

func TestEnsureDeployedInstallsOnce(t *testing.T) {
	node := newFakeNode()
	spec := wcsprSpec(node)
	orch := New(node, nil, nil, testConfig())

	first, err := orch.EnsureDeployed(context.Background(), spec)
	if err != nil {
		t.Fatalf("first EnsureDeployed failed: %v", err)
	}
	if first.AlreadyDeployed {
		t.Error("first call should install, not skip")
	}
	if len(node.submits) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(node.submits))
	}

	second, err := orch.EnsureDeployed(context.Background(), spec)
	if err != nil {
		t.Fatalf("second EnsureDeployed failed: %v", err)
	}
	if !second.AlreadyDeployed {
		t.Error("second call should skip")
	}
	if len(node.submits) != 1 {
		t.Errorf("expected no new submission on second call, got %d total", len(node.submits))
	}
	if !second.Entry.PackageHash.Equal(first.Entry.PackageHash) {
		t.Error("both calls should resolve the same package hash")
	}
}

func TestEnsureDeployedSkipsWhenNamedKeyExists(t *testing.T) {
	node := newFakeNode()
	pkg := contractID(0x01)
	node.namedKeys["wcspr"] = pkg
	node.packages[pkg.HexHash()] = rpc.ContractPackage{
		Versions: []rpc.ContractVersion{
			{ContractHash: contractID(0x02), Version: 3},
		},
	}

	orch := New(node, nil, nil, testConfig())
	result, err := orch.EnsureDeployed(context.Background(), ContractSpec{
		Name:    "wcspr",
		Install: json.RawMessage("install-wcspr"),
		Init:    json.RawMessage("init-wcspr"),
	})
	if err != nil {
		t.Fatalf("EnsureDeployed failed: %v", err)
	}
	if !result.AlreadyDeployed {
		t.Error("expected skip on named-key hit")
	}
	if len(node.submits) != 0 {
		t.Errorf("expected no submissions, got %d", len(node.submits))
	}
	if !result.Entry.ContractHash.Equal(contractID(0x02)) {
		t.Error("expected active contract hash resolved from the package")
	}
}

func TestEnsureDeployedSkipsFromPriorManifest(t *testing.T) {
	node := newFakeNode()
	prior := manifest.New()
	prior.Set("wcspr", manifest.Entry{
		PackageHash:  contractID(0x01),
		ContractHash: contractID(0x02),
	})

	orch := New(node, prior, nil, testConfig())
	result, err := orch.EnsureDeployed(context.Background(), ContractSpec{
		Name:    "wcspr",
		Install: json.RawMessage("install-wcspr"),
	})
	if err != nil {
		t.Fatalf("EnsureDeployed failed: %v", err)
	}
	if !result.AlreadyDeployed {
		t.Error("expected manifest hit to skip")
	}
	if len(node.submits) != 0 {
		t.Errorf("expected no node traffic beyond probes, got %d submissions", len(node.submits))
	}
}

func TestEnsureDeployedRunsInit(t *testing.T) {
	node := newFakeNode()
	spec := wcsprSpec(node)
	spec.Init = json.RawMessage("init-wcspr")

	orch := New(node, nil, nil, testConfig())
	if _, err := orch.EnsureDeployed(context.Background(), spec); err != nil {
		t.Fatalf("EnsureDeployed failed: %v", err)
	}

	if len(node.submits) != 2 {
		t.Fatalf("expected install then init, got %d submissions", len(node.submits))
	}
	if node.submits[0] != "install-wcspr" || node.submits[1] != "init-wcspr" {
		t.Errorf("unexpected submission order: %v", node.submits)
	}
}

func TestEnsureDeployedFailsWhenNamedKeyNeverAppears(t *testing.T) {
	node := newFakeNode()
	orch := New(node, nil, nil, testConfig())

	// No install effect registered: the deploy finalizes but the named
	// key never lands.
	_, err := orch.EnsureDeployed(context.Background(), ContractSpec{
		Name:    "wcspr",
		Install: json.RawMessage("install-wcspr"),
	})
	if err == nil {
		t.Fatal("expected failure when the named key never appears")
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	node := newFakeNode()
	first := wcsprSpec(node)

	// Second contract's install submission fails at the node.
	pkg := contractID(0x03)
	node.packages[pkg.HexHash()] = rpc.ContractPackage{
		Versions: []rpc.ContractVersion{{ContractHash: contractID(0x04), Version: 1}},
	}

	orch := New(node, nil, nil, testConfig())

	specs := []ContractSpec{
		first,
		{Name: "ecto", Install: json.RawMessage("install-ecto")},
		{Name: "usdc", Install: json.RawMessage("install-usdc")},
	}

	results, err := orch.Run(context.Background(), specs)
	if err == nil {
		t.Fatal("expected Run to fail")
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 completed contract before abort, got %d", len(results))
	}
	if results[0].Name != "wcspr" {
		t.Errorf("expected wcspr completed, got %s", results[0].Name)
	}

	// The partial manifest keeps what did complete.
	if _, ok := orch.Manifest().Get("wcspr"); !ok {
		t.Error("expected wcspr in the partial manifest")
	}
	if _, ok := orch.Manifest().Get("ecto"); ok {
		t.Error("did not expect ecto in the manifest")
	}
}

func TestRunDeploysInOrder(t *testing.T) {
	node := newFakeNode()

	names := []string{"wcspr", "ecto", "usdc"}
	specs := make([]ContractSpec, 0, len(names))
	for i, name := range names {
		pkg := contractID(byte(0x10 + i))
		node.packages[pkg.HexHash()] = rpc.ContractPackage{
			Versions: []rpc.ContractVersion{{ContractHash: contractID(byte(0x20 + i)), Version: 1}},
		}
		node.installs["install-"+name] = installEffect{namedKey: name, pkg: pkg}
		specs = append(specs, ContractSpec{
			Name:    name,
			Install: json.RawMessage("install-" + name),
		})
	}

	orch := New(node, nil, nil, testConfig())
	results, err := orch.Run(context.Background(), specs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, name := range names {
		if node.submits[i] != "install-"+name {
			t.Errorf("submission %d: expected install-%s, got %s", i, name, node.submits[i])
		}
	}
}

func TestEnsureDeployedPropagatesSubmitError(t *testing.T) {
	node := newFakeNode()
	node.submitErr = errors.New("account has insufficient balance")

	orch := New(node, nil, nil, testConfig())
	_, err := orch.EnsureDeployed(context.Background(), ContractSpec{
		Name:    "wcspr",
		Install: json.RawMessage("install-wcspr"),
	})
	if err == nil {
		t.Fatal("expected submit error to propagate")
	}
}
