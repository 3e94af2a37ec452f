package contract

// 运行期常量：规范化上下文与记录版本。
const (
	DefaultNBins        = 384
	DefaultTopK         = 10
	DefaultMemberLimit  = 25
	DefaultScript       = "bin_harness_384"
	DefaultUnitType     = "TRIPLET"
	DefaultCanonVersion = "v1"
	SchemaVersion       = "bin_harness_run_v1"
	// RunIDPrefix 与 bin 数无关，保持固定。
	RunIDPrefix = "RUN-BIN384-"
)

// Mode: payload 来源模式。
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeExhaustive Mode = "exhaustive"
	ModeFile       Mode = "file"
)

// Valid 报告 m 是否为已知模式。
func (m Mode) Valid() bool {
	switch m {
	case ModeRandom, ModeExhaustive, ModeFile:
		return true
	}
	return false
}

// TopBin: 排名靠前的 bin 及其样本成员（路由 ID）。
type TopBin struct {
	Bin       int      `json:"bin"`
	Count     int      `json:"count"`
	MemberIDs []string `json:"member_ids"`
}

// RunRecord: 一次完整路由的持久化记录，一经构造不再修改。
// BinCounts 仅在显式请求时存在；Seed 仅 random 模式存在。
type RunRecord struct {
	SchemaVersion string `json:"schema_version"`
	RunID         string `json:"run_id"`
	CreatedAt     string `json:"created_at"`

	DatasetID string `json:"dataset_id"`
	Mode      Mode   `json:"mode"`
	NBins     int    `json:"n_bins"`
	N         int    `json:"N"`

	EmptyBins     int     `json:"empty_bins"`
	EmptyRatio    float64 `json:"empty_ratio"`
	Entropy       float64 `json:"entropy"`
	Gini          float64 `json:"gini"`
	MaxLoad       int     `json:"max_load"`
	CollisionBins int     `json:"collision_bins"`

	TopBins   []TopBin `json:"top_bins"`
	BinCounts []int    `json:"bin_counts,omitempty"`

	Script       string `json:"script"`
	UnitType     string `json:"unit_type"`
	CanonVersion string `json:"canon_version"`
	Seed         *int64 `json:"seed,omitempty"`
}

// Digest: 控制台一行摘要。
type Digest struct {
	DatasetID     string  `json:"dataset_id"`
	Mode          Mode    `json:"mode"`
	N             int     `json:"N"`
	EmptyRatio    float64 `json:"empty_ratio"`
	Entropy       float64 `json:"entropy"`
	Gini          float64 `json:"gini"`
	MaxLoad       int     `json:"max_load"`
	CollisionBins int     `json:"collision_bins"`
}

// Digest 提取摘要字段。
func (r RunRecord) Digest() Digest {
	return Digest{
		DatasetID:     r.DatasetID,
		Mode:          r.Mode,
		N:             r.N,
		EmptyRatio:    r.EmptyRatio,
		Entropy:       r.Entropy,
		Gini:          r.Gini,
		MaxLoad:       r.MaxLoad,
		CollisionBins: r.CollisionBins,
	}
}
