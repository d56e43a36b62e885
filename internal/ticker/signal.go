package ticker

// Signal 行情徽标：Buy / Sell / Hold
type Signal string

const (
	SignalBuy  Signal = "Buy"
	SignalSell Signal = "Sell"
	SignalHold Signal = "Hold"
)

// 24h 涨跌幅阈值（百分比），边界值本身算 Hold
const signalThreshold = 1.5

// DeriveSignal 只是基于 24h 涨跌幅的静态阈值占位，不是技术指标，不要当作交易依据。
// 以后若接入真正的指标计算，应新增函数而不是改这里。
func DeriveSignal(change24h float64) Signal {
	switch {
	case change24h > signalThreshold:
		return SignalBuy
	case change24h < -signalThreshold:
		return SignalSell
	default:
		return SignalHold
	}
}
