package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/planner"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

type validateOptions struct {
	personnelFile    string
	attributionsFile string
	rulesFile        string
	startDate        string
	endDate          string
	holidays         []string
	output           string
	strict           bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验既有排班",
		Long:  "对排班文件执行全部校验规则，输出违规列表与质量指标。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.personnelFile, "personnel", "p", "", "人员JSON文件（必填）")
	cmd.Flags().StringVarP(&opts.attributionsFile, "attributions", "a", "", "排班JSON文件（必填）")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "规则集JSON文件，默认使用内置规则")
	cmd.Flags().StringVar(&opts.startDate, "start", "", "开始日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringVar(&opts.endDate, "end", "", "结束日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringSliceVar(&opts.holidays, "holidays", nil, "节假日列表 YYYY-MM-DD")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件，默认标准输出")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "存在违规时以非零状态码退出")

	cmd.MarkFlagRequired("personnel")
	cmd.MarkFlagRequired("attributions")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func runValidate(opts *validateOptions) error {
	var personnel []*model.Person
	if err := readJSONFile(opts.personnelFile, &personnel); err != nil {
		return fmt.Errorf("读取人员文件失败: %w", err)
	}
	if len(personnel) == 0 {
		return fmt.Errorf("人员列表为空")
	}

	var attributions []*model.Attribution
	if err := readJSONFile(opts.attributionsFile, &attributions); err != nil {
		return fmt.Errorf("读取排班文件失败: %w", err)
	}

	start, end, err := parseRange(opts.startDate, opts.endDate)
	if err != nil {
		return err
	}

	ruleSet, err := loadRuleSet(opts.rulesFile)
	if err != nil {
		return err
	}

	oracle, err := parseHolidayDates(opts.holidays)
	if err != nil {
		return err
	}

	params := model.DefaultGenerationParameters(start, end)
	rc := planner.NewRunContext(params, nil, nil)
	rc.SetPersonnel(personnel)
	rc.SeedAttributions(attributions, oracle)

	validator := planner.NewValidator(rc, nil, nil, rules.NewStaticEvaluator(ruleSet))
	result, err := validator.Validate(context.Background(), rc.Attributions(), time.Now())
	if err != nil {
		return err
	}

	if err := writeJSONOutput(opts.output, result); err != nil {
		return err
	}

	if result.Valid {
		fmt.Fprintln(os.Stderr, "校验通过，无违规")
	} else {
		fmt.Fprintf(os.Stderr, "发现 %d 条违规\n", len(result.Violations))
		if opts.strict {
			os.Exit(1)
		}
	}
	return nil
}
