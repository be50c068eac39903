package emotion

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Emotion
	}{
		{
			name: "praise is happy",
			text: "Great work! You solved it on your own.",
			want: Happy,
		},
		{
			name: "case insensitive",
			text: "EXCELLENT progress today.",
			want: Happy,
		},
		{
			name: "explanation markers",
			text: "Let me explain how a hash map stores keys.",
			want: Explaining,
		},
		{
			name: "numbered steps are explaining",
			text: "First, initialize the list. Then append each item.",
			want: Explaining,
		},
		{
			name: "deliberation is thinking",
			text: "Hmm, it depends on the size of your input.",
			want: Thinking,
		},
		{
			name: "uncertainty is confused",
			text: "I'm not sure what you mean, could you clarify?",
			want: Confused,
		},
		{
			name: "confirmation is happy",
			text: "Correct! That loop runs exactly n times.",
			want: Happy,
		},
		{
			name: "agreement is happy",
			text: "Yes, that's the idea.",
			want: Happy,
		},
		{
			name: "incorrect does not match correct",
			text: "That answer is incorrect, try again.",
			want: Neutral,
		},
		{
			name: "yesterday does not match yes",
			text: "We covered this topic yesterday.",
			want: Neutral,
		},
		{
			name: "plain statement is neutral",
			text: "Python lists are mutable sequences.",
			want: Neutral,
		},
		{
			name: "empty text is neutral",
			text: "",
			want: Neutral,
		},
		{
			name: "happy outranks explaining",
			text: "Excellent question! Let me explain the difference.",
			want: Happy,
		},
		{
			name: "explaining outranks thinking",
			text: "That works by hashing, let me think of an example... for example a dict.",
			want: Explaining,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
