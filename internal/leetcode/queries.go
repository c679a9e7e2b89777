package leetcode

const dailyChallengeQuery = `query questionOfToday {
  activeDailyCodingChallengeQuestion {
    date
    link
    question {
      questionId
      questionFrontendId
      title
      titleSlug
      content
      difficulty
      acRate
      isPaidOnly
      topicTags { name slug }
      stats
      hints
      exampleTestcases
    }
  }
}`

const problemQuery = `query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    questionFrontendId
    title
    titleSlug
    content
    difficulty
    likes
    dislikes
    isPaidOnly
    similarQuestions
    exampleTestcases
    topicTags { name slug }
    codeSnippets { lang langSlug code }
    stats
    hints
    sampleTestCase
    metaData
  }
}`

const searchProblemsQuery = `query problemsetQuestionList($categorySlug: String, $limit: Int, $skip: Int, $filters: QuestionListFilterInput) {
  problemsetQuestionList: questionList(categorySlug: $categorySlug, limit: $limit, skip: $skip, filters: $filters) {
    total: totalNum
    questions: data {
      questionFrontendId
      title
      titleSlug
      difficulty
      acRate
      isPaidOnly
      topicTags { name slug }
    }
  }
}`

const userProfileQuery = `query getUserProfile($username: String!) {
  matchedUser(username: $username) {
    username
    githubUrl
    profile { realName userAvatar countryName company school ranking }
    submitStats { totalSubmissionNum { difficulty count submissions } }
  }
}`

const userContestRankingQuery = `query userContestRankingInfo($username: String!) {
  userContestRanking(username: $username) {
    attendedContestsCount
    rating
    globalRanking
    totalParticipants
    topPercentage
    badge { name }
  }
  userContestRankingHistory(username: $username) {
    attended
    trendDirection
    problemsSolved
    totalProblems
    finishTimeInSeconds
    rating
    ranking
    contest { title startTime }
  }
}`

const recentSubmissionsQuery = `query recentSubmissions($username: String!, $limit: Int) {
  recentSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
    statusDisplay
    lang
  }
}`

const recentACSubmissionsQuery = `query recentAcSubmissions($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    time
    timestamp
    statusDisplay
    lang
  }
}`

const userStatusQuery = `query globalData {
  userStatus {
    userId
    isSignedIn
    username
    avatar
    isAdmin
  }
}`

const allSubmissionsQuery = `query submissionList($offset: Int!, $limit: Int!, $lastKey: String, $questionSlug: String!, $status: Int) {
  questionSubmissionList(offset: $offset, limit: $limit, lastKey: $lastKey, questionSlug: $questionSlug, status: $status) {
    lastKey
    hasNext
    submissions {
      id
      title
      titleSlug
      status
      statusDisplay
      lang
      langName
      runtime
      memory
      timestamp
      url
      isPending
    }
  }
}`

const progressQuestionListQuery = `query userProgressQuestionList($filters: UserProgressQuestionListInput) {
  userProgressQuestionList(filters: $filters) {
    totalNum
    questions {
      frontendId
      title
      titleSlug
      difficulty
      lastSubmittedAt
      numSubmitted
      questionStatus
      lastResult
      topicTags { name slug }
    }
  }
}`

const submissionDetailQuery = `query submissionDetails($submissionId: Int!) {
  submissionDetails(submissionId: $submissionId) {
    runtime
    runtimeDisplay
    runtimePercentile
    memory
    memoryDisplay
    memoryPercentile
    code
    timestamp
    statusCode
    lang { name verboseName }
    question { questionId titleSlug }
    notes
    topicTags { tagId slug name }
    runtimeError
    compileError
    lastTestcase
    codeOutput
    expectedOutput
    totalCorrect
    totalTestcases
  }
}`

const solutionArticlesQuery = `query ugcArticleSolutionArticles($questionSlug: String!, $orderBy: ArticleOrderByEnum, $userInput: String, $tagSlugs: [String!], $skip: Int, $first: Int) {
  ugcArticleSolutionArticles(questionSlug: $questionSlug, orderBy: $orderBy, userInput: $userInput, tagSlugs: $tagSlugs, skip: $skip, first: $first) {
    totalNum
    pageInfo { hasNextPage }
    edges {
      node {
        uuid
        title
        slug
        summary
        author { realName userAvatar userSlug userName }
        articleType
        createdAt
        updatedAt
        hitCount
        topicId
        canSee
        hasVideoArticle
        reactions { count reactionType }
        tags { name slug }
      }
    }
  }
}`

const solutionArticleQuery = `query ugcArticleSolutionArticle($topicId: ID!) {
  ugcArticleSolutionArticle(topicId: $topicId) {
    uuid
    title
    slug
    summary
    content
    createdAt
    updatedAt
    hitCount
    topicId
    canSee
    author { realName userAvatar userSlug userName }
    tags { name slug }
    question { questionTitle questionFrontendId titleSlug }
  }
}`
