/*
Copyright © 2024 Ryan Painter paintersrp@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Paintersrp/anvil/internal/config"
	"github.com/Paintersrp/anvil/internal/constants"
	"github.com/Paintersrp/anvil/internal/state"
	"github.com/Paintersrp/anvil/pkg/cmd/initialize"
	"github.com/Paintersrp/anvil/pkg/cmd/root"
)

func Execute() {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	viper.AddConfigPath(home + constants.ConfigDir)
	viper.SetConfigName(constants.ConfigFile)
	viper.SetConfigType(constants.ConfigFileType)
	viper.ReadInConfig()

	// A missing vault dir means we are pre-init: only the init command
	// can run usefully, so skip full state construction.
	var initErr *config.ConfigInitError
	s, stateErr := state.NewState()
	if errors.As(stateErr, &initErr) {
		fmt.Println(initErr.Error())
		if err := initialize.NewCmdInit().Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	cobra.CheckErr(stateErr)
	defer s.Close()

	rootCmd, rootErr := root.NewCmdRoot(s)
	cobra.CheckErr(rootErr)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
