package runtime

const (
	// accountStorageOverhead 每个账户在数据之外额外计费的字节数
	accountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
)

// Rent 租金参数，语义与链上 Rent sysvar 一致
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance 免租所需的最低余额
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(accountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}
