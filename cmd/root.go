// Copyright © 2017 yuuki0xff <yuuki0xff@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yuuki0xff/frametrace/info"
)

var cfgDir string
var srvAddr string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   info.AppName,
	Short: "Frame-synchronized OpenGL call tracer",

	// Silence unnecessary messages.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config dir (default is "+info.DefaultConfigDir+")")
	RootCmd.PersistentFlags().StringVarP(&srvAddr, "server", "s", "", "base URL of the tracing server (default is read from the config dir)")
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.BindEnv("server", info.DefaultServerEnv) // nolint: errcheck
	if srvAddr == "" {
		srvAddr = viper.GetString("server")
	}
}
