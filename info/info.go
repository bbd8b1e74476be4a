package info

const (
	AppName = "frametrace"
	Version = "0.1.0"

	DefaultConfigDir = "./.frametrace"
	// 環境変数の名前は EnvPrefix + "_" + 設定キーの大文字。例: FRAMETRACE_ADDR
	EnvPrefix        = "FRAMETRACE"
	DefaultServerEnv = EnvPrefix + "_SERVER"
)
