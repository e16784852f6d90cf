package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"vocabquiz/internal/app"
	"vocabquiz/internal/backend"
	"vocabquiz/internal/models"
	"vocabquiz/internal/quizflow"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Take the quiz in the terminal",
	Long: `Take the multiple-choice quiz in the terminal. Each question shows the
Arabic forms of a word; answer with the number of its English meaning.
Enter q to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		in := bufio.NewReader(cmd.InOrStdin())
		session, err := signIn(cmd, a.AuthService, in)
		if err != nil {
			return err
		}
		defer a.AuthService.SignOut(cmd.Context(), session.AccessToken)

		ctx := backend.WithAccessToken(cmd.Context(), session.AccessToken)
		c := quizflow.NewController(ctx, quizflow.Options{
			Loader:        a.QuizService,
			Recorder:      a.QuizService,
			FeedbackDelay: cfg.FeedbackDelay,
			Logger:        logger,
		})
		defer c.Close()

		if err := c.Dispatch(quizflow.SignedIn{User: session.User}); err != nil {
			return err
		}

		score, err := runPlay(ctx, c, in, cmd.OutOrStdout())
		fmt.Fprintf(cmd.OutOrStdout(), "\nAnswered %d, correct %d\n", score.answered, score.correct)
		return err
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	addCredentialFlags(playCmd)
}

type playScore struct {
	answered int
	correct  int
}

// runPlay drives c from terminal input until the user quits, input ends, or the
// quiz cannot continue
func runPlay(ctx context.Context, c *quizflow.Controller, in *bufio.Reader, out io.Writer) (playScore, error) {
	var (
		score   playScore
		lastGen uint64
	)

	for {
		s, err := c.Wait(ctx, func(s quizflow.State) bool {
			if s.Generation <= lastGen {
				return false
			}
			return s.Phase == quizflow.PhaseAwaitingAnswer || s.Notice != "" || s.Error != ""
		})
		if err != nil {
			return score, err
		}
		switch {
		case s.Notice != "":
			fmt.Fprintln(out, s.Notice)
			return score, nil
		case s.Error != "":
			return score, errors.New(s.Error)
		}

		printQuestion(out, s.Question)
		choice, err := readChoice(in, out, len(s.Question.Options))
		if errors.Is(err, errQuit) {
			return score, nil
		}
		if err != nil {
			return score, err
		}

		meaning := s.Question.Options[choice-1].Item.Meaning
		if err := c.Dispatch(quizflow.AnswerSelected{Meaning: meaning}); err != nil {
			return score, err
		}

		gen := s.Generation
		fb, err := c.Wait(ctx, func(s quizflow.State) bool {
			return s.Generation == gen && s.Phase == quizflow.PhaseFeedback
		})
		if err != nil {
			return score, err
		}

		score.answered++
		if fb.Feedback.Correct {
			score.correct++
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong: the answer is %s\n", fb.Feedback.CorrectMeaning)
		}
		lastGen = gen
	}
}

func printQuestion(w io.Writer, set *models.OptionSet) {
	fmt.Fprintln(w)
	for _, f := range set.Question.Item.Forms {
		fmt.Fprintf(w, "  %s: %s\n", f.Type, f.Value)
	}
	for i, opt := range set.Options {
		fmt.Fprintf(w, "%d) %s\n", i+1, opt.Item.Meaning)
	}
}

// readChoice reads a 1-based option number, re-prompting on bad input
func readChoice(in *bufio.Reader, out io.Writer, n int) (int, error) {
	for {
		line, err := prompt(in, out, "> ")
		if err != nil {
			return 0, err
		}
		if line == "q" {
			return 0, errQuit
		}
		choice, err := strconv.Atoi(line)
		if err == nil && choice >= 1 && choice <= n {
			return choice, nil
		}
		fmt.Fprintf(out, "Enter a number from 1 to %d, or q to quit\n", n)
	}
}
