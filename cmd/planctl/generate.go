package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/planner"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

type generateOptions struct {
	personnelFile string
	existingFile  string
	rulesFile     string
	startDate     string
	endDate       string
	kinds         []string
	level         string
	seed          int64
	holidays      []string
	keepExisting  bool
	preferences   bool
	output        string
	timeout       time.Duration
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成排班",
		Long:  "根据人员文件与参数生成指定日期区间的排班，结果以JSON输出。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.personnelFile, "personnel", "p", "", "人员JSON文件（必填）")
	cmd.Flags().StringVar(&opts.existingFile, "existing", "", "已有排班JSON文件")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "规则集JSON文件，默认使用内置规则")
	cmd.Flags().StringVar(&opts.startDate, "start", "", "开始日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringVar(&opts.endDate, "end", "", "结束日期 YYYY-MM-DD（必填）")
	cmd.Flags().StringSliceVar(&opts.kinds, "kinds", nil, "活动类型，默认全部 (duty,reserve,...)")
	cmd.Flags().StringVar(&opts.level, "level", "standard", "优化级别 (fast/standard/thorough)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "随机种子，0 表示按时间播种")
	cmd.Flags().StringSliceVar(&opts.holidays, "holidays", nil, "节假日列表 YYYY-MM-DD")
	cmd.Flags().BoolVar(&opts.keepExisting, "keep-existing", false, "保留已有排班并计入计数器")
	cmd.Flags().BoolVar(&opts.preferences, "preferences", false, "启用偏好加分")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件，默认标准输出")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "生成超时时间")

	cmd.MarkFlagRequired("personnel")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func runGenerate(opts *generateOptions) error {
	var personnel []*model.Person
	if err := readJSONFile(opts.personnelFile, &personnel); err != nil {
		return fmt.Errorf("读取人员文件失败: %w", err)
	}

	var existing []*model.Attribution
	if opts.existingFile != "" {
		if err := readJSONFile(opts.existingFile, &existing); err != nil {
			return fmt.Errorf("读取已有排班文件失败: %w", err)
		}
	}

	start, end, err := parseRange(opts.startDate, opts.endDate)
	if err != nil {
		return err
	}

	params := model.DefaultGenerationParameters(start, end)
	params.OptimizationLevel = model.OptimizationLevel(opts.level)
	params.Seed = opts.seed
	params.KeepExisting = opts.keepExisting
	params.ApplyPreferences = opts.preferences
	if len(opts.kinds) > 0 {
		params.ActiveKinds, err = parseKinds(opts.kinds)
		if err != nil {
			return err
		}
	}

	ruleSet, err := loadRuleSet(opts.rulesFile)
	if err != nil {
		return err
	}

	oracle, err := parseHolidayDates(opts.holidays)
	if err != nil {
		return err
	}

	gen := planner.NewGenerator(params, nil, nil)
	gen.SetEvaluator(rules.NewStaticEvaluator(ruleSet))
	gen.SetHolidayOracle(oracle)

	if err := gen.Initialize(personnel, existing); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	result, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	if err := writeJSONOutput(opts.output, result); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "生成 %d 条排班，填充率 %.1f%%，耗时 %s\n",
		len(result.Attributions), result.Statistics.FillRate, result.Duration)
	if !result.Validation.Valid {
		fmt.Fprintf(os.Stderr, "存在 %d 条校验违规\n", len(result.Validation.Violations))
	}
	return nil
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(model.DateKey, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("无效的开始日期 %q", startStr)
	}
	end, err := time.Parse(model.DateKey, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("无效的结束日期 %q", endStr)
	}
	return start, end, nil
}

func parseKinds(names []string) ([]model.ActivityKind, error) {
	kinds := make([]model.ActivityKind, 0, len(names))
	for _, s := range names {
		kind := model.ActivityKind(s)
		if !kind.IsValid() {
			return nil, fmt.Errorf("未知的活动类型 %q", s)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parseHolidayDates(days []string) (calendar.HolidayOracle, error) {
	if len(days) == 0 {
		return calendar.NoHolidays{}, nil
	}
	dates := make([]time.Time, 0, len(days))
	for _, s := range days {
		d, err := time.Parse(model.DateKey, s)
		if err != nil {
			return nil, fmt.Errorf("无效的节假日日期 %q", s)
		}
		dates = append(dates, d)
	}
	return calendar.NewStaticHolidays(dates...), nil
}

func loadRuleSet(path string) ([]rules.Rule, error) {
	if path == "" {
		return rules.DefaultRuleSet(), nil
	}
	var ruleSet []rules.Rule
	if err := readJSONFile(path, &ruleSet); err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}
	return ruleSet, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONOutput(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
